package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fillog/api/internal/store"
)

type LikeResult struct {
	PostID string `json:"postId"`
	Likes  int    `json:"likes"`
	Liked  bool   `json:"liked"`
}

// ToggleLike flips the user's like on a post. Likes never drop below zero.
func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (LikeResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return LikeResult{}, errValidation("userId is required")
	}

	var result LikeResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		post, err := lookup(ctx, tx.Posts(), postID, entityPost)
		if err != nil {
			return err
		}
		user, err := lookup(ctx, tx.Users(), userID, entityUser)
		if err != nil {
			return err
		}

		liked := !user.LikedArticles.Has(postID)
		if liked {
			user.LikedArticles.Add(postID)
			post.Likes++
		} else {
			user.LikedArticles.Remove(postID)
			post.Likes--
		}
		if post.Likes < 0 {
			post.Likes = 0
		}

		if err := tx.Posts().Replace(ctx, post); err != nil {
			return fmt.Errorf("update likes: %w", err)
		}
		if err := tx.Users().Replace(ctx, user); err != nil {
			return fmt.Errorf("update liked articles: %w", err)
		}
		result = LikeResult{PostID: post.ID, Likes: post.Likes, Liked: liked}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}

	if result.Liked {
		s.event(ctx, "post_liked")
	} else {
		s.event(ctx, "post_unliked")
	}
	return result, nil
}

type FollowResult struct {
	User     store.User
	Follower store.User
	Follow   store.Follow
}

// Follow records that followerID follows userID on both users and in the follower's Follow document.
func (s *Service) Follow(ctx context.Context, userID, followerID string) (FollowResult, error) {
	return s.updateFollow(ctx, userID, followerID, true)
}

// Unfollow reverses Follow. Unfollowing someone not followed is a no-op.
func (s *Service) Unfollow(ctx context.Context, userID, followerID string) (FollowResult, error) {
	return s.updateFollow(ctx, userID, followerID, false)
}

func (s *Service) updateFollow(ctx context.Context, userID, followerID string, follow bool) (FollowResult, error) {
	userID = strings.TrimSpace(userID)
	followerID = strings.TrimSpace(followerID)
	if userID == "" || followerID == "" {
		return FollowResult{}, errValidation("userId and followerID are required")
	}
	if userID == followerID {
		return FollowResult{}, errValidation("users cannot follow themselves")
	}

	var result FollowResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		user, err := lookup(ctx, tx.Users(), userID, entityUser)
		if err != nil {
			return err
		}
		follower, err := lookup(ctx, tx.Users(), followerID, entityUser)
		if err != nil {
			return err
		}

		mirror, err := tx.Follows().Get(ctx, followerID)
		exists := err == nil
		if errors.Is(err, store.ErrNotFound) {
			mirror = store.Follow{ID: followerID, Users: store.IDSet{}, CreatedAt: s.now().UTC()}
		} else if err != nil {
			return fmt.Errorf("load follow: %w", err)
		}

		var userChanged, followerChanged, mirrorChanged bool
		if follow {
			userChanged = user.Followers.Add(followerID)
			followerChanged = follower.Followings.Add(userID)
			mirrorChanged = mirror.Users.Add(userID)
		} else {
			userChanged = user.Followers.Remove(followerID)
			followerChanged = follower.Followings.Remove(userID)
			mirrorChanged = mirror.Users.Remove(userID)
		}

		if userChanged {
			if err := tx.Users().Replace(ctx, user); err != nil {
				return fmt.Errorf("update followers: %w", err)
			}
		}
		if followerChanged {
			if err := tx.Users().Replace(ctx, follower); err != nil {
				return fmt.Errorf("update followings: %w", err)
			}
		}
		if mirrorChanged || (follow && !exists) {
			if err := tx.Follows().Upsert(ctx, mirror); err != nil {
				return fmt.Errorf("update follow: %w", err)
			}
		}

		result = FollowResult{User: user, Follower: follower, Follow: mirror}
		return nil
	})
	if err != nil {
		return FollowResult{}, err
	}

	if follow {
		s.event(ctx, "user_followed")
	} else {
		s.event(ctx, "user_unfollowed")
	}
	return result, nil
}

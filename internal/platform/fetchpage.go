package platform

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// JoinPage fetches profile and recent posts concurrently and merges them
// into a Page. Adapters implement FetchPage with it so the page view shares
// the exact network paths of the two individual calls.
func JoinPage(ctx context.Context, a Adapter, accessToken string) (*Page, error) {
	g, ctx := errgroup.WithContext(ctx)

	var prof *Profile
	var posts []Post

	g.Go(func() error {
		p, err := a.FetchProfile(ctx, accessToken)
		if err != nil {
			return err
		}
		prof = p
		return nil
	})
	g.Go(func() error {
		ps, err := a.FetchRecentPosts(ctx, accessToken)
		if err != nil {
			return err
		}
		posts = ps
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Page{Profile: *prof, Posts: posts}, nil
}

// ExpiryAt converts a relative expires-in (seconds) to an absolute UTC
// timestamp. Non-positive values mean "no expiry reported" and map to nil.
func ExpiryAt(now time.Time, seconds int) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := now.Add(time.Duration(seconds) * time.Second).UTC()
	return &t
}

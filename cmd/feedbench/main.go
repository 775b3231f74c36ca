package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"

	"github.com/d60-Lab/social-feed/config"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/repository"
	"github.com/d60-Lab/social-feed/internal/service"
	"github.com/d60-Lab/social-feed/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			return v
		}
	}
	return def
}

func report(name string, h *hdrhistogram.Histogram) {
	fmt.Printf("%-22s n=%d p50=%v p95=%v p99=%v max=%v\n", name, h.TotalCount(),
		time.Duration(h.ValueAtQuantile(50))*time.Microsecond,
		time.Duration(h.ValueAtQuantile(95))*time.Microsecond,
		time.Duration(h.ValueAtQuantile(99))*time.Microsecond,
		time.Duration(h.Max())*time.Microsecond)
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := database.AutoMigrate(db, model.All()...); err != nil {
		panic(err)
	}

	// params
	USERS := envInt("USERS", 200)
	POSTS := envInt("POSTS", 500)
	COMMENTS := envInt("COMMENTS", 8) // per post
	LIKES := envInt("LIKES", 20)      // per post
	ITER := envInt("ITER", 200)

	ctx := context.Background()
	// clean tables for a reproducible run (ok for local bench)
	for _, table := range []string{"notifications", "comment_likes", "likes", "comments", "posts", "profiles"} {
		_ = db.Exec("DELETE FROM " + table).Error
	}

	profiles := repository.NewProfileRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	likes := repository.NewLikeRepository(db)

	users := make([]model.Profile, USERS)
	for i := range users {
		id := uuid.New().String()
		users[i] = model.Profile{ID: id, Username: "u" + id[:8], FullName: fmt.Sprintf("User %d", i)}
	}
	if err := db.CreateInBatches(&users, 500).Error; err != nil {
		panic(err)
	}

	rng := rand.New(rand.NewSource(42))
	seedStart := time.Now()
	base := time.Now().Add(-time.Duration(POSTS) * time.Minute)
	for i := 0; i < POSTS; i++ {
		p := &model.Post{Content: fmt.Sprintf("post %d", i), UserID: users[rng.Intn(USERS)].ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := posts.Create(ctx, p); err != nil {
			panic(err)
		}
		var ids []string
		for j := 0; j < COMMENTS; j++ {
			c := &model.Comment{Content: "c", UserID: users[rng.Intn(USERS)].ID, PostID: p.ID}
			// 约一半评论挂到已有评论下，形成多层回复
			if len(ids) > 0 && rng.Intn(2) == 0 {
				parent := ids[rng.Intn(len(ids))]
				c.ParentID = &parent
			}
			if err := comments.Create(ctx, c); err != nil {
				panic(err)
			}
			ids = append(ids, c.ID)
		}
		for j := 0; j < LIKES; j++ {
			_, _ = likes.LikePost(ctx, users[rng.Intn(USERS)].ID, p.ID)
		}
	}
	fmt.Printf("USERS=%d POSTS=%d COMMENTS=%d LIKES=%d ITER=%d seed=%v\n", USERS, POSTS, COMMENTS, LIKES, ITER, time.Since(seedStart))

	feeds := service.NewFeedService(posts, profiles, cfg.Feed)
	home := hdrhistogram.New(1, 60_000_000, 3)
	profile := hdrhistogram.New(1, 60_000_000, 3)
	for i := 0; i < ITER; i++ {
		viewer := users[rng.Intn(USERS)]

		st := time.Now()
		if _, err := feeds.Home(ctx, viewer.ID); err != nil {
			panic(err)
		}
		_ = home.RecordValue(time.Since(st).Microseconds())

		st = time.Now()
		if _, err := feeds.Profile(ctx, viewer.Username, viewer.ID); err != nil {
			panic(err)
		}
		_ = profile.RecordValue(time.Since(st).Microseconds())
	}

	report("Home (limit="+strconv.Itoa(cfg.Feed.HomeLimit)+")", home)
	report("Profile (3 tabs)", profile)
}

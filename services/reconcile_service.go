package services

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
)

// ReconcileReport counts what a repair pass changed, or would change on a dry run.
// Deferred counts candidates left for a later pass because they were written recently
// or changed between the read and the repair.
type ReconcileReport struct {
	LikesFixed           int  `json:"likesFixed"`
	DanglingLikesRemoved int  `json:"danglingLikesRemoved"`
	MirrorsFixed         int  `json:"mirrorsFixed"`
	PostListsFixed       int  `json:"postListsFixed"`
	CommentListsFixed    int  `json:"commentListsFixed"`
	Deferred             int  `json:"deferred"`
	DryRun               bool `json:"dryRun"`
}

// Total is the number of repairs in the report
func (r *ReconcileReport) Total() int {
	return r.LikesFixed + r.DanglingLikesRemoved + r.MirrorsFixed + r.PostListsFixed + r.CommentListsFixed
}

// ReconcileService re-derives every duplicated value from its authoritative side.
//
// The scans only nominate candidates. Each repair re-reads the documents it touches,
// leaves alone any document written within the grace window, and writes only while
// updatedAt still holds the value it read. A unit of work in flight therefore never
// looks like drift, provided units finish within the grace window.
type ReconcileService struct {
	users    UserRepository
	posts    PostRepository
	comments CommentRepository
	grace    time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewReconcileService(users UserRepository, posts PostRepository, comments CommentRepository, grace time.Duration, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{
		users:    users,
		posts:    posts,
		comments: comments,
		grace:    grace,
		now:      time.Now,
		logger:   logger.Named("reconcile"),
	}
}

// WithClock replaces the clock used to age documents
func (s *ReconcileService) WithClock(now func() time.Time) *ReconcileService {
	s.now = now
	return s
}

type edge struct{ from, to primitive.ObjectID }

// Run performs one repair pass
func (s *ReconcileService) Run(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	report := &ReconcileReport{DryRun: dryRun}

	posts := map[primitive.ObjectID]*models.Post{}
	if err := s.posts.Scan(ctx, func(p *models.Post) error {
		posts[p.ID] = p
		return nil
	}); err != nil {
		return nil, Wrap(err, "scan posts")
	}
	users := map[primitive.ObjectID]*models.User{}
	if err := s.users.Scan(ctx, func(u *models.User) error {
		users[u.ID] = u
		return nil
	}); err != nil {
		return nil, Wrap(err, "scan users")
	}

	cutoff := s.now().Add(-s.grace)
	if err := s.fixLikes(ctx, users, posts, cutoff, report); err != nil {
		return nil, err
	}
	if err := s.fixMirrors(ctx, users, cutoff, report); err != nil {
		return nil, err
	}
	if err := s.fixPostLists(ctx, users, posts, cutoff, report); err != nil {
		return nil, err
	}
	if err := s.fixCommentLists(ctx, posts, cutoff, report); err != nil {
		return nil, err
	}

	s.logger.Info("reconcile finished",
		zap.Bool("dryRun", dryRun),
		zap.Int("likesFixed", report.LikesFixed),
		zap.Int("danglingLikesRemoved", report.DanglingLikesRemoved),
		zap.Int("mirrorsFixed", report.MirrorsFixed),
		zap.Int("postListsFixed", report.PostListsFixed),
		zap.Int("commentListsFixed", report.CommentListsFixed),
		zap.Int("deferred", report.Deferred))
	return report, nil
}

// repair applies write and bumps counter, or only counts on a dry run. A guarded write
// that matched nothing lost a race and is deferred.
func (s *ReconcileService) repair(report *ReconcileReport, counter *int, write func() (bool, error)) error {
	if report.DryRun {
		*counter++
		return nil
	}
	done, err := write()
	if err != nil {
		return err
	}
	if done {
		*counter++
	} else {
		report.Deferred++
	}
	return nil
}

// freshUser re-reads a user. A nil user with a nil error means it no longer exists.
func (s *ReconcileService) freshUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if KindOf(err) == KindNotFound {
		return nil, nil
	}
	return u, err
}

func (s *ReconcileService) freshPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if KindOf(err) == KindNotFound {
		return nil, nil
	}
	return p, err
}

func (s *ReconcileService) fixLikes(ctx context.Context, users map[primitive.ObjectID]*models.User, posts map[primitive.ObjectID]*models.Post, cutoff time.Time, report *ReconcileReport) error {
	counts := make(map[primitive.ObjectID]int, len(posts))
	for _, u := range users {
		for _, postID := range u.PostsLike {
			if _, ok := posts[postID]; ok {
				counts[postID]++
				continue
			}
			if err := s.dropDanglingLike(ctx, u.ID, postID, cutoff, report); err != nil {
				return err
			}
		}
	}

	for id, p := range posts {
		if p.Likes == counts[id] {
			continue
		}
		fresh, err := s.freshPost(ctx, id)
		if err != nil {
			return Wrap(err, "reload post")
		}
		if fresh == nil {
			continue
		}
		if fresh.UpdatedAt.After(cutoff) {
			report.Deferred++
			continue
		}
		n, err := s.users.CountWithMember(ctx, SetPostsLike, id)
		if err != nil {
			return Wrap(err, "count likes")
		}
		if fresh.Likes == int(n) {
			continue
		}
		s.logger.Debug("like counter drift", zap.String("postId", id.Hex()), zap.Int("stored", fresh.Likes), zap.Int64("derived", n))
		if err := s.repair(report, &report.LikesFixed, func() (bool, error) {
			return s.posts.SetLikes(ctx, fresh, int(n))
		}); err != nil {
			return Wrap(err, "set likes")
		}
	}
	return nil
}

func (s *ReconcileService) dropDanglingLike(ctx context.Context, userID, postID primitive.ObjectID, cutoff time.Time, report *ReconcileReport) error {
	// the post may have been created after the scan
	post, err := s.freshPost(ctx, postID)
	if err != nil {
		return Wrap(err, "reload post")
	}
	if post != nil {
		return nil
	}
	u, err := s.freshUser(ctx, userID)
	if err != nil {
		return Wrap(err, "reload user")
	}
	if u == nil || !models.ContainsID(u.PostsLike, postID) {
		return nil
	}
	if u.UpdatedAt.After(cutoff) {
		report.Deferred++
		return nil
	}
	return Wrap(s.repair(report, &report.DanglingLikesRemoved, func() (bool, error) {
		return s.users.PullIfUnchanged(ctx, u, SetPostsLike, postID)
	}), "remove dangling like")
}

// fixMirrors drops half edges: a follow present on only one of the two documents
func (s *ReconcileService) fixMirrors(ctx context.Context, users map[primitive.ObjectID]*models.User, cutoff time.Time, report *ReconcileReport) error {
	following := map[edge]bool{}
	followers := map[edge]bool{}
	for _, u := range users {
		for _, to := range u.Following {
			following[edge{u.ID, to}] = true
		}
		for _, from := range u.Followers {
			followers[edge{from, u.ID}] = true
		}
	}

	for e := range following {
		if !followers[e] {
			if err := s.dropHalfEdge(ctx, e, cutoff, report); err != nil {
				return err
			}
		}
	}
	for e := range followers {
		if !following[e] {
			if err := s.dropHalfEdge(ctx, e, cutoff, report); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ReconcileService) dropHalfEdge(ctx context.Context, e edge, cutoff time.Time, report *ReconcileReport) error {
	from, err := s.freshUser(ctx, e.from)
	if err != nil {
		return Wrap(err, "reload follower")
	}
	to, err := s.freshUser(ctx, e.to)
	if err != nil {
		return Wrap(err, "reload followed user")
	}
	if (from != nil && from.UpdatedAt.After(cutoff)) || (to != nil && to.UpdatedAt.After(cutoff)) {
		report.Deferred++
		return nil
	}

	hasFollowing := from != nil && models.ContainsID(from.Following, e.to)
	hasFollower := to != nil && models.ContainsID(to.Followers, e.from)
	if hasFollowing == hasFollower {
		return nil
	}
	return Wrap(s.repair(report, &report.MirrorsFixed, func() (bool, error) {
		if hasFollowing {
			return s.users.PullIfUnchanged(ctx, from, SetFollowing, e.to)
		}
		return s.users.PullIfUnchanged(ctx, to, SetFollowers, e.from)
	}), "drop half edge")
}

func (s *ReconcileService) fixPostLists(ctx context.Context, users map[primitive.ObjectID]*models.User, posts map[primitive.ObjectID]*models.Post, cutoff time.Time, report *ReconcileReport) error {
	owned := make(map[primitive.ObjectID][]*models.Post, len(users))
	for _, p := range posts {
		owned[p.UserID] = append(owned[p.UserID], p)
	}
	for id, u := range users {
		list := owned[id]
		want := make([]primitive.ObjectID, 0, len(list))
		sortByCreated(list)
		for _, p := range list {
			want = append(want, p.ID)
		}
		if sameSet(u.Posts, want) {
			continue
		}

		fresh, err := s.freshUser(ctx, id)
		if err != nil {
			return Wrap(err, "reload user")
		}
		if fresh == nil {
			continue
		}
		if fresh.UpdatedAt.After(cutoff) {
			report.Deferred++
			continue
		}
		want, err = s.posts.IDsByUser(ctx, id)
		if err != nil {
			return Wrap(err, "list post ids")
		}
		if sameSet(fresh.Posts, want) {
			continue
		}
		if err := s.repair(report, &report.PostListsFixed, func() (bool, error) {
			return s.users.ReplaceSet(ctx, fresh, SetPosts, want)
		}); err != nil {
			return Wrap(err, "replace post list")
		}
	}
	return nil
}

func (s *ReconcileService) fixCommentLists(ctx context.Context, posts map[primitive.ObjectID]*models.Post, cutoff time.Time, report *ReconcileReport) error {
	for id, p := range posts {
		want, err := s.comments.IDsByPost(ctx, id)
		if err != nil {
			return Wrap(err, "list comment ids")
		}
		if sameSet(p.Comments, want) {
			continue
		}

		fresh, err := s.freshPost(ctx, id)
		if err != nil {
			return Wrap(err, "reload post")
		}
		if fresh == nil {
			continue
		}
		if fresh.UpdatedAt.After(cutoff) {
			report.Deferred++
			continue
		}
		if want, err = s.comments.IDsByPost(ctx, id); err != nil {
			return Wrap(err, "list comment ids")
		}
		if sameSet(fresh.Comments, want) {
			continue
		}
		if err := s.repair(report, &report.CommentListsFixed, func() (bool, error) {
			return s.posts.SetComments(ctx, fresh, want)
		}); err != nil {
			return Wrap(err, "replace comment list")
		}
	}
	return nil
}

// Start runs a pass every interval until ctx is done
func (s *ReconcileService) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx, false); err != nil {
				s.logger.Error("reconcile pass failed", zap.Error(err))
			}
		}
	}
}

func sameSet(a, b []primitive.ObjectID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[primitive.ObjectID]int, len(a))
	for _, id := range a {
		set[id]++
	}
	for _, id := range b {
		if set[id] == 0 {
			return false
		}
		set[id]--
	}
	return true
}

func sortByCreated(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })
}

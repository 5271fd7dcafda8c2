// Package testutil holds in-memory implementations of the repositories and
// collaborators, shared by service and controller tests.
package testutil

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
)

// Memory is a database held in maps. Every repository built from one Memory shares
// its state and its lock, so each call is atomic like a single-document write.
type Memory struct {
	mu            sync.Mutex
	users         map[primitive.ObjectID]*models.User
	posts         map[primitive.ObjectID]*models.Post
	comments      map[primitive.ObjectID]*models.Comment
	notifications map[primitive.ObjectID]*models.Notification
	failures      map[string][]error
	clock         time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:         map[primitive.ObjectID]*models.User{},
		posts:         map[primitive.ObjectID]*models.Post{},
		comments:      map[primitive.ObjectID]*models.Comment{},
		notifications: map[primitive.ObjectID]*models.Notification{},
		failures:      map[string][]error{},
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailNext makes the next call of op (for example "users.AddToSet") return err.
// Queued entries are consumed one per call; a nil entry lets that call through.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// fail must be called with m.mu held
func (m *Memory) fail(op string) error {
	queue := m.failures[op]
	if len(queue) == 0 {
		return nil
	}
	m.failures[op] = queue[1:]
	return queue[0]
}

// tick returns strictly increasing timestamps so ordering by creation is stable
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

// Now is the time of the latest write
func (m *Memory) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock
}

// Advance moves the clock forward, ageing every stored document by d
func (m *Memory) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(d)
}

func (m *Memory) Users() *UserRepo                 { return &UserRepo{m} }
func (m *Memory) Posts() *PostRepo                 { return &PostRepo{m} }
func (m *Memory) Comments() *CommentRepo           { return &CommentRepo{m} }
func (m *Memory) Notifications() *NotificationRepo { return &NotificationRepo{m} }

// User returns a copy of the stored user, nil when absent
func (m *Memory) User(id primitive.ObjectID) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

// Post returns a copy of the stored post, nil when absent
func (m *Memory) Post(id primitive.ObjectID) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		return clonePost(p)
	}
	return nil
}

// Comment returns a copy of the stored comment, nil when absent
func (m *Memory) Comment(id primitive.ObjectID) *models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.comments[id]; ok {
		return cloneComment(c)
	}
	return nil
}

// Notification returns a copy of the stored notification, nil when absent
func (m *Memory) Notification(id primitive.ObjectID) *models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		c := *n
		return &c
	}
	return nil
}

// Counts reports how many documents each collection holds
func (m *Memory) Counts() (users, posts, comments, notifications int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), len(m.posts), len(m.comments), len(m.notifications)
}

// MutateUser runs fn on the stored user, for tests that need to plant drift
func (m *Memory) MutateUser(id primitive.ObjectID, fn func(*models.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		fn(u)
	}
}

// MutatePost runs fn on the stored post
func (m *Memory) MutatePost(id primitive.ObjectID, fn func(*models.Post)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		fn(p)
	}
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Posts = cloneIDs(u.Posts)
	c.Notifications = cloneIDs(u.Notifications)
	c.Following = cloneIDs(u.Following)
	c.Followers = cloneIDs(u.Followers)
	c.PostsLike = cloneIDs(u.PostsLike)
	if u.ProfileImage != nil {
		img := *u.ProfileImage
		c.ProfileImage = &img
	}
	return &c
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Media = append([]models.MediaRef{}, p.Media...)
	c.Tags = append([]string{}, p.Tags...)
	c.Comments = cloneIDs(p.Comments)
	return &c
}

func cloneComment(cm *models.Comment) *models.Comment {
	c := *cm
	c.Replies = append([]models.Reply{}, cm.Replies...)
	return &c
}

func userSet(u *models.User, set services.UserSet) *[]primitive.ObjectID {
	switch set {
	case services.SetPosts:
		return &u.Posts
	case services.SetNotifications:
		return &u.Notifications
	case services.SetFollowing:
		return &u.Following
	case services.SetFollowers:
		return &u.Followers
	case services.SetPostsLike:
		return &u.PostsLike
	}
	panic("unknown user set " + string(set))
}

func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// UserRepo implements services.UserRepository
type UserRepo struct{ m *Memory }

var _ services.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.Create"); err != nil {
		return err
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	for _, u := range r.m.users {
		if u.Email == user.Email || u.ID == user.ID {
			return services.Conflict("Email already in use")
		}
	}
	now := r.m.tick()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	stored := cloneUser(user)
	r.m.users[user.ID] = stored
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, services.NotFound("User not found")
	}
	return cloneUser(u), nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, services.NotFound("User not found")
}

func (r *UserRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := r.m.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepo) Search(_ context.Context, pattern string, excludePrivate bool, limit int) ([]models.User, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.User{}
	for _, u := range r.m.users {
		if pattern != "" && !re.MatchString(u.FirstName) && !re.MatchString(u.LastName) {
			continue
		}
		if excludePrivate && u.AccountPrivacy == models.PrivacyPrivate {
			continue
		}
		c := cloneUser(u)
		c.Password = ""
		c.FCMToken = ""
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].LastName < out[j].LastName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UserRepo) Update(_ context.Context, id primitive.ObjectID, ch services.UserChanges) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.Update"); err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, services.NotFound("User not found")
	}
	if ch.Email != nil {
		for _, other := range r.m.users {
			if other.ID != id && other.Email == *ch.Email {
				return nil, services.Conflict("Email already in use")
			}
		}
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.FirstName, ch.FirstName)
	set(&u.LastName, ch.LastName)
	set(&u.Status, ch.Status)
	set(&u.Bio, ch.Bio)
	set(&u.Email, ch.Email)
	set(&u.Phone, ch.Phone)
	set(&u.Password, ch.Password)
	set(&u.AccountPrivacy, ch.AccountPrivacy)
	if ch.ProfileImage != nil {
		img := *ch.ProfileImage
		u.ProfileImage = &img
	}
	u.UpdatedAt = r.m.tick()
	return cloneUser(u), nil
}

func (r *UserRepo) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.Delete"); err != nil {
		return false, err
	}
	if _, ok := r.m.users[id]; !ok {
		return false, nil
	}
	delete(r.m.users, id)
	return true, nil
}

func (r *UserRepo) AddToSet(_ context.Context, id primitive.ObjectID, set services.UserSet, value primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.AddToSet"); err != nil {
		return false, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return false, services.NotFound("User not found")
	}
	ids := userSet(u, set)
	if models.ContainsID(*ids, value) {
		return false, nil
	}
	*ids = append(*ids, value)
	u.UpdatedAt = r.m.tick()
	return true, nil
}

func (r *UserRepo) Pull(_ context.Context, id primitive.ObjectID, set services.UserSet, value primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.Pull"); err != nil {
		return false, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return false, services.NotFound("User not found")
	}
	ids := userSet(u, set)
	if !models.ContainsID(*ids, value) {
		return false, nil
	}
	*ids = without(*ids, value)
	u.UpdatedAt = r.m.tick()
	return true, nil
}

func (r *UserRepo) PullFromAll(_ context.Context, set services.UserSet, value primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.PullFromAll"); err != nil {
		return nil, err
	}
	var changed []primitive.ObjectID
	for id, u := range r.m.users {
		ids := userSet(u, set)
		if models.ContainsID(*ids, value) {
			*ids = without(*ids, value)
			u.UpdatedAt = r.m.tick()
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func (r *UserRepo) ReplaceSet(_ context.Context, seen *models.User, set services.UserSet, values []primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[seen.ID]
	if !ok || !u.UpdatedAt.Equal(seen.UpdatedAt) {
		return false, nil
	}
	*userSet(u, set) = cloneIDs(values)
	return true, nil
}

func (r *UserRepo) PullIfUnchanged(_ context.Context, seen *models.User, set services.UserSet, value primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[seen.ID]
	if !ok || !u.UpdatedAt.Equal(seen.UpdatedAt) {
		return false, nil
	}
	ids := userSet(u, set)
	if !models.ContainsID(*ids, value) {
		return false, nil
	}
	*ids = without(*ids, value)
	return true, nil
}

func (r *UserRepo) CountWithMember(_ context.Context, set services.UserSet, value primitive.ObjectID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, u := range r.m.users {
		if models.ContainsID(*userSet(u, set), value) {
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) SetPushToken(_ context.Context, id primitive.ObjectID, token string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return services.NotFound("User not found")
	}
	u.FCMToken = token
	u.UpdatedAt = r.m.tick()
	return nil
}

func (r *UserRepo) Scan(_ context.Context, fn func(*models.User) error) error {
	r.m.mu.Lock()
	users := make([]*models.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		users = append(users, cloneUser(u))
	}
	r.m.mu.Unlock()
	for _, u := range users {
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

// PostRepo implements services.PostRepository
type PostRepo struct{ m *Memory }

var _ services.PostRepository = (*PostRepo)(nil)

func (r *PostRepo) Create(_ context.Context, post *models.Post) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("posts.Create"); err != nil {
		return err
	}
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := r.m.tick()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	r.m.posts[post.ID] = clonePost(post)
	return nil
}

func (r *PostRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.posts[id]
	if !ok {
		return nil, services.NotFound("Post not found")
	}
	return clonePost(p), nil
}

func (r *PostRepo) sorted(filter func(*models.Post) bool, newestFirst bool) []models.Post {
	out := []models.Post{}
	for _, p := range r.m.posts {
		if filter(p) {
			out = append(out, *clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func paginate[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	end := skip + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[skip:end]
}

func (r *PostRepo) List(_ context.Context, skip, limit int64) ([]models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return paginate(r.sorted(func(*models.Post) bool { return true }, true), skip, limit), nil
}

func (r *PostRepo) ListByUser(_ context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	all := r.sorted(func(p *models.Post) bool { return p.UserID == userID }, true)
	return paginate(all, skip, limit), nil
}

func (r *PostRepo) IDsByUser(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []primitive.ObjectID
	for _, p := range r.sorted(func(p *models.Post) bool { return p.UserID == userID }, false) {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *PostRepo) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("posts.Delete"); err != nil {
		return false, err
	}
	if _, ok := r.m.posts[id]; !ok {
		return false, nil
	}
	delete(r.m.posts, id)
	return true, nil
}

func (r *PostRepo) IncLikes(_ context.Context, id primitive.ObjectID, delta int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("posts.IncLikes"); err != nil {
		return err
	}
	p, ok := r.m.posts[id]
	if !ok {
		return services.NotFound("Post not found")
	}
	p.Likes += delta
	p.UpdatedAt = r.m.tick()
	return nil
}

func (r *PostRepo) Touch(_ context.Context, id primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.posts[id]
	if !ok {
		return services.NotFound("Post not found")
	}
	p.UpdatedAt = r.m.tick()
	return nil
}

// unchanged must be called with m.mu held
func (r *PostRepo) unchanged(seen *models.Post) (*models.Post, bool) {
	p, ok := r.m.posts[seen.ID]
	if !ok || !p.UpdatedAt.Equal(seen.UpdatedAt) {
		return nil, false
	}
	return p, true
}

func (r *PostRepo) SetLikes(_ context.Context, seen *models.Post, likes int) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.unchanged(seen)
	if !ok {
		return false, nil
	}
	p.Likes = likes
	return true, nil
}

func (r *PostRepo) AddComment(_ context.Context, id, commentID primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("posts.AddComment"); err != nil {
		return false, err
	}
	p, ok := r.m.posts[id]
	if !ok {
		return false, services.NotFound("Post not found")
	}
	if models.ContainsID(p.Comments, commentID) {
		return false, nil
	}
	p.Comments = append(p.Comments, commentID)
	p.UpdatedAt = r.m.tick()
	return true, nil
}

func (r *PostRepo) PullComment(_ context.Context, id, commentID primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("posts.PullComment"); err != nil {
		return false, err
	}
	p, ok := r.m.posts[id]
	if !ok {
		return false, services.NotFound("Post not found")
	}
	if !models.ContainsID(p.Comments, commentID) {
		return false, nil
	}
	p.Comments = without(p.Comments, commentID)
	p.UpdatedAt = r.m.tick()
	return true, nil
}

func (r *PostRepo) SetComments(_ context.Context, seen *models.Post, ids []primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.unchanged(seen)
	if !ok {
		return false, nil
	}
	p.Comments = cloneIDs(ids)
	return true, nil
}

func (r *PostRepo) Scan(_ context.Context, fn func(*models.Post) error) error {
	r.m.mu.Lock()
	posts := make([]*models.Post, 0, len(r.m.posts))
	for _, p := range r.m.posts {
		posts = append(posts, clonePost(p))
	}
	r.m.mu.Unlock()
	for _, p := range posts {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// CommentRepo implements services.CommentRepository
type CommentRepo struct{ m *Memory }

var _ services.CommentRepository = (*CommentRepo)(nil)

func (r *CommentRepo) Create(_ context.Context, comment *models.Comment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("comments.Create"); err != nil {
		return err
	}
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	now := r.m.tick()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = now
	if comment.Replies == nil {
		comment.Replies = []models.Reply{}
	}
	r.m.comments[comment.ID] = cloneComment(comment)
	return nil
}

func (r *CommentRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.comments[id]
	if !ok {
		return nil, services.NotFound("Comment not found")
	}
	return cloneComment(c), nil
}

func (r *CommentRepo) byPost(postID primitive.ObjectID) []models.Comment {
	out := []models.Comment{}
	for _, c := range r.m.comments {
		if c.PostID == postID {
			out = append(out, *cloneComment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *CommentRepo) ListByPost(_ context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.byPost(postID), nil
}

func (r *CommentRepo) IDsByPost(_ context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := []primitive.ObjectID{}
	for _, c := range r.byPost(postID) {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (r *CommentRepo) UpdateBody(_ context.Context, id primitive.ObjectID, body string) (*models.Comment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.comments[id]
	if !ok {
		return nil, services.NotFound("Comment not found")
	}
	c.Body = body
	c.UpdatedAt = r.m.tick()
	return cloneComment(c), nil
}

func (r *CommentRepo) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("comments.Delete"); err != nil {
		return false, err
	}
	if _, ok := r.m.comments[id]; !ok {
		return false, nil
	}
	delete(r.m.comments, id)
	return true, nil
}

func (r *CommentRepo) DeleteByPost(_ context.Context, postID primitive.ObjectID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("comments.DeleteByPost"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range r.m.comments {
		if c.PostID == postID {
			delete(r.m.comments, id)
			n++
		}
	}
	return n, nil
}

func (r *CommentRepo) AddReply(_ context.Context, id primitive.ObjectID, reply models.Reply) (*models.Comment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.comments[id]
	if !ok {
		return nil, services.NotFound("Comment not found")
	}
	c.Replies = append(c.Replies, reply)
	c.UpdatedAt = r.m.tick()
	return cloneComment(c), nil
}

func (r *CommentRepo) PullReply(_ context.Context, id, replyID, ownerID primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.comments[id]
	if !ok {
		return false, nil
	}
	idx := c.FindReply(replyID)
	if idx < 0 || c.Replies[idx].UserID != ownerID {
		return false, nil
	}
	c.Replies = append(c.Replies[:idx:idx], c.Replies[idx+1:]...)
	return true, nil
}

// NotificationRepo implements services.NotificationRepository
type NotificationRepo struct{ m *Memory }

var _ services.NotificationRepository = (*NotificationRepo)(nil)

func (r *NotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("notifications.Create"); err != nil {
		return err
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	now := r.m.tick()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if n.State == "" {
		n.State = models.StateUnread
	}
	c := *n
	r.m.notifications[n.ID] = &c
	return nil
}

func (r *NotificationRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok {
		return nil, services.NotFound("Notification not found")
	}
	c := *n
	return &c, nil
}

func (r *NotificationRepo) find(filter func(*models.Notification) bool) []models.Notification {
	out := []models.Notification{}
	for _, n := range r.m.notifications {
		if filter(n) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *NotificationRepo) ListAll(_ context.Context) ([]models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.find(func(*models.Notification) bool { return true }), nil
}

func (r *NotificationRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.find(func(n *models.Notification) bool { return n.UserID == userID }), nil
}

func (r *NotificationRepo) SetState(_ context.Context, id primitive.ObjectID, state string) (*models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok {
		return nil, services.NotFound("Notification not found")
	}
	n.State = state
	n.UpdatedAt = r.m.tick()
	c := *n
	return &c, nil
}

func (r *NotificationRepo) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("notifications.Delete"); err != nil {
		return false, err
	}
	if _, ok := r.m.notifications[id]; !ok {
		return false, nil
	}
	delete(r.m.notifications, id)
	return true, nil
}

func (r *NotificationRepo) DeleteByUser(_ context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("notifications.DeleteByUser"); err != nil {
		return nil, err
	}
	removed := r.find(func(n *models.Notification) bool { return n.UserID == userID })
	for _, n := range removed {
		delete(r.m.notifications, n.ID)
	}
	return removed, nil
}

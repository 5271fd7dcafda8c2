package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/storage"
)

// Paging defaults for post listings
const (
	DefaultPageSize = 5
	MaxPageSize     = 50
)

// PostService manages posts, their media and like bookkeeping
type PostService struct {
	posts    PostRepository
	users    UserRepository
	comments CommentRepository
	tx       Transactor
	media    *storage.Media
	logger   *zap.Logger
}

func NewPostService(posts PostRepository, users UserRepository, comments CommentRepository, tx Transactor, media *storage.Media, logger *zap.Logger) *PostService {
	return &PostService{
		posts:    posts,
		users:    users,
		comments: comments,
		tx:       tx,
		media:    media,
		logger:   logger.Named("posts"),
	}
}

// Create validates every file before anything is stored, uploads the media, then
// saves the post and its id on the owner in one unit. Uploads are removed when the
// unit fails.
func (s *PostService) Create(ctx context.Context, ownerID primitive.ObjectID, req *models.CreatePostRequest, files []storage.File) (*models.PostView, error) {
	for _, f := range files {
		if err := storage.ValidateFile(f, ""); err != nil {
			return nil, mediaError(err, "validate media")
		}
	}
	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return nil, Wrap(err, "find owner")
	}

	refs, err := s.media.UploadPostMedia(ctx, files)
	if err != nil {
		return nil, mediaError(err, "upload media")
	}

	post := &models.Post{
		ID:       primitive.NewObjectID(),
		Title:    req.Title,
		Body:     req.Body,
		Tags:     req.Tags,
		Media:    refs,
		Comments: []primitive.ObjectID{},
		UserID:   ownerID,
	}
	var listed bool
	err = s.tx.Run(ctx,
		Step{
			Name: "insert post",
			Do:   func(ctx context.Context) error { return s.posts.Create(ctx, post) },
			Undo: func(ctx context.Context) error {
				_, err := s.posts.Delete(ctx, post.ID)
				return err
			},
		},
		Step{
			Name: "list post on owner",
			Do: func(ctx context.Context) (err error) {
				listed, err = s.users.AddToSet(ctx, ownerID, SetPosts, post.ID)
				return err
			},
			Undo: func(ctx context.Context) error {
				return undoIf(listed, func() error {
					_, err := s.users.Pull(ctx, ownerID, SetPosts, post.ID)
					return err
				})
			},
		},
	)
	if err != nil {
		s.media.DeleteAll(context.WithoutCancel(ctx), refs)
		return nil, Wrap(err, "create post")
	}

	s.logger.Info("post created", zap.String("postId", post.ID.Hex()), zap.Int("media", len(refs)))
	return &models.PostView{Post: *post, Author: models.AuthorOf(owner)}, nil
}

// List returns posts newest first
func (s *PostService) List(ctx context.Context, pageSize, pageIndex int) ([]models.PostView, error) {
	skip, limit := page(pageSize, pageIndex)
	posts, err := s.posts.List(ctx, skip, limit)
	if err != nil {
		return nil, Wrap(err, "list posts")
	}
	return s.withAuthors(ctx, posts)
}

// ListByUser returns one user's posts newest first
func (s *PostService) ListByUser(ctx context.Context, userID primitive.ObjectID, pageSize, pageIndex int) ([]models.PostView, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, Wrap(err, "find user")
	}
	skip, limit := page(pageSize, pageIndex)
	posts, err := s.posts.ListByUser(ctx, userID, skip, limit)
	if err != nil {
		return nil, Wrap(err, "list user posts")
	}
	return s.withAuthors(ctx, posts)
}

func page(pageSize, pageIndex int) (skip, limit int64) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	return int64(pageIndex) * int64(pageSize), int64(pageSize)
}

func (s *PostService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PostView, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, Wrap(err, "find post")
	}
	views, err := s.withAuthors(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *PostService) withAuthors(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	ids := make([]primitive.ObjectID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.UserID)
	}
	authors, err := authorsByID(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.PostView, len(posts))
	for i, p := range posts {
		views[i] = models.PostView{Post: p, Author: authors[p.UserID]}
	}
	return views, nil
}

// Delete removes a post owned by the caller together with every reference to it:
// the owner's post list, likes and comments. Stored media goes last.
func (s *PostService) Delete(ctx context.Context, actingID, postID primitive.ObjectID) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return Wrap(err, "find post")
	}
	if post.UserID != actingID {
		return Forbidden("Forbidden: You do not own this post")
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return Wrap(err, "load comments")
	}

	var (
		unlisted bool
		likers   []primitive.ObjectID
	)
	err = s.tx.Run(ctx,
		Step{
			Name: "delete post",
			Do: func(ctx context.Context) error {
				ok, err := s.posts.Delete(ctx, postID)
				if err != nil {
					return err
				}
				if !ok {
					return NotFound("Post not found")
				}
				return nil
			},
			Undo: func(ctx context.Context) error { return s.posts.Create(ctx, post) },
		},
		Step{
			Name: "unlist post from owner",
			Do: func(ctx context.Context) (err error) {
				unlisted, err = s.users.Pull(ctx, post.UserID, SetPosts, postID)
				if KindOf(err) == KindNotFound {
					return nil
				}
				return err
			},
			Undo: func(ctx context.Context) error {
				return undoIf(unlisted, func() error {
					_, err := s.users.AddToSet(ctx, post.UserID, SetPosts, postID)
					return err
				})
			},
		},
		Step{
			Name: "drop likes",
			Do: func(ctx context.Context) (err error) {
				likers, err = s.users.PullFromAll(ctx, SetPostsLike, postID)
				return err
			},
			Undo: func(ctx context.Context) error {
				var errs []error
				for _, id := range likers {
					if _, err := s.users.AddToSet(ctx, id, SetPostsLike, postID); err != nil {
						errs = append(errs, err)
					}
				}
				return errors.Join(errs...)
			},
		},
		Step{
			Name: "delete comments",
			Do: func(ctx context.Context) error {
				_, err := s.comments.DeleteByPost(ctx, postID)
				return err
			},
			Undo: func(ctx context.Context) error {
				var errs []error
				for i := range comments {
					errs = append(errs, s.comments.Create(ctx, &comments[i]))
				}
				return errors.Join(errs...)
			},
		},
	)
	if err != nil {
		return Wrap(err, "delete post")
	}

	s.media.DeleteAll(context.WithoutCancel(ctx), post.Media)
	s.logger.Info("post deleted", zap.String("postId", postID.Hex()), zap.Int("comments", len(comments)))
	return nil
}

// SetLike likes or unlikes a post. The guarded write on the user's like set decides
// membership, so the counter moves at most once per user and direction.
func (s *PostService) SetLike(ctx context.Context, actingID, postID primitive.ObjectID, like bool) (*models.Post, error) {
	// the stamp keeps a concurrent repair pass off this post until the unit settles
	if err := s.posts.Touch(ctx, postID); err != nil {
		if KindOf(err) == KindNotFound {
			return nil, NotFound("Post does not exist")
		}
		return nil, Wrap(err, "touch post")
	}

	delta := 1
	if !like {
		delta = -1
	}
	err := s.tx.Run(ctx,
		Step{
			Name: "mark like",
			Do: func(ctx context.Context) error {
				if like {
					changed, err := s.users.AddToSet(ctx, actingID, SetPostsLike, postID)
					if err != nil {
						return err
					}
					if !changed {
						return Conflict("You have already liked this post")
					}
					return nil
				}
				changed, err := s.users.Pull(ctx, actingID, SetPostsLike, postID)
				if err != nil {
					return err
				}
				if !changed {
					return Conflict("You have not liked this post yet")
				}
				return nil
			},
			Undo: func(ctx context.Context) error {
				var err error
				if like {
					_, err = s.users.Pull(ctx, actingID, SetPostsLike, postID)
				} else {
					_, err = s.users.AddToSet(ctx, actingID, SetPostsLike, postID)
				}
				return err
			},
		},
		Step{
			Name: "count like",
			Do:   func(ctx context.Context) error { return s.posts.IncLikes(ctx, postID, delta) },
			Undo: func(ctx context.Context) error { return s.posts.IncLikes(ctx, postID, -delta) },
		},
	)
	if err != nil {
		return nil, Wrap(err, "update like")
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, Wrap(err, "reload post")
	}
	return post, nil
}

// authorsByID resolves public author summaries; missing users are left out
func authorsByID(ctx context.Context, users UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Author, error) {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	unique := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	found, err := users.FindByIDs(ctx, unique)
	if err != nil {
		return nil, Wrap(err, "load authors")
	}
	out := make(map[primitive.ObjectID]*models.Author, len(found))
	for i := range found {
		out[found[i].ID] = models.AuthorOf(&found[i])
	}
	return out, nil
}

package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
)

// CommentService manages comments and their embedded replies. Only owners may
// change what they wrote.
type CommentService struct {
	comments CommentRepository
	posts    PostRepository
	users    UserRepository
	tx       Transactor
	logger   *zap.Logger
}

func NewCommentService(comments CommentRepository, posts PostRepository, users UserRepository, tx Transactor, logger *zap.Logger) *CommentService {
	return &CommentService{comments: comments, posts: posts, users: users, tx: tx, logger: logger.Named("comments")}
}

// Add stores a comment and lists it on the post in one unit
func (s *CommentService) Add(ctx context.Context, actingID, postID primitive.ObjectID, body string) (*models.CommentView, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, Wrap(err, "find post")
	}
	comment := &models.Comment{
		ID:      primitive.NewObjectID(),
		Body:    body,
		UserID:  actingID,
		PostID:  postID,
		Replies: []models.Reply{},
	}

	var listed bool
	err := s.tx.Run(ctx,
		Step{
			Name: "insert comment",
			Do:   func(ctx context.Context) error { return s.comments.Create(ctx, comment) },
			Undo: func(ctx context.Context) error {
				_, err := s.comments.Delete(ctx, comment.ID)
				return err
			},
		},
		Step{
			Name: "list comment on post",
			Do: func(ctx context.Context) (err error) {
				listed, err = s.posts.AddComment(ctx, postID, comment.ID)
				return err
			},
			Undo: func(ctx context.Context) error {
				return undoIf(listed, func() error {
					_, err := s.posts.PullComment(ctx, postID, comment.ID)
					return err
				})
			},
		},
	)
	if err != nil {
		return nil, Wrap(err, "create comment")
	}
	return s.view(ctx, comment)
}

// ListByPost returns a post's comments oldest first
func (s *CommentService) ListByPost(ctx context.Context, postID primitive.ObjectID) ([]models.CommentView, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, Wrap(err, "list comments")
	}
	return s.views(ctx, comments)
}

func (s *CommentService) Edit(ctx context.Context, actingID, commentID primitive.ObjectID, body string) (*models.CommentView, error) {
	comment, err := s.owned(ctx, actingID, commentID)
	if err != nil {
		return nil, err
	}
	updated, err := s.comments.UpdateBody(ctx, comment.ID, body)
	if err != nil {
		return nil, Wrap(err, "update comment")
	}
	return s.view(ctx, updated)
}

// Delete removes the comment and its id from the post in one unit
func (s *CommentService) Delete(ctx context.Context, actingID, commentID primitive.ObjectID) error {
	comment, err := s.owned(ctx, actingID, commentID)
	if err != nil {
		return err
	}

	var unlisted bool
	err = s.tx.Run(ctx,
		Step{
			Name: "delete comment",
			Do: func(ctx context.Context) error {
				ok, err := s.comments.Delete(ctx, commentID)
				if err != nil {
					return err
				}
				if !ok {
					return NotFound("Comment not found")
				}
				return nil
			},
			Undo: func(ctx context.Context) error { return s.comments.Create(ctx, comment) },
		},
		Step{
			Name: "unlist comment from post",
			Do: func(ctx context.Context) (err error) {
				unlisted, err = s.posts.PullComment(ctx, comment.PostID, commentID)
				if KindOf(err) == KindNotFound {
					return nil
				}
				return err
			},
			Undo: func(ctx context.Context) error {
				return undoIf(unlisted, func() error {
					_, err := s.posts.AddComment(ctx, comment.PostID, commentID)
					return err
				})
			},
		},
	)
	if err != nil {
		return Wrap(err, "delete comment")
	}
	return nil
}

func (s *CommentService) AddReply(ctx context.Context, actingID, commentID primitive.ObjectID, body string) (*models.CommentView, error) {
	reply := models.Reply{
		ID:        primitive.NewObjectID(),
		Body:      body,
		UserID:    actingID,
		CreatedAt: time.Now().UTC(),
	}
	updated, err := s.comments.AddReply(ctx, commentID, reply)
	if err != nil {
		return nil, Wrap(err, "add reply")
	}
	return s.view(ctx, updated)
}

// RemoveReply deletes a reply owned by the caller. The removal is conditional on the
// owner, so a reply that changed hands in between is never removed.
func (s *CommentService) RemoveReply(ctx context.Context, actingID, commentID, replyID primitive.ObjectID) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return Wrap(err, "find comment")
	}
	idx := comment.FindReply(replyID)
	if idx < 0 {
		return NotFound("Reply not found")
	}
	if comment.Replies[idx].UserID != actingID {
		return Forbidden("Unauthorized")
	}

	removed, err := s.comments.PullReply(ctx, commentID, replyID, actingID)
	if err != nil {
		return Wrap(err, "remove reply")
	}
	if !removed {
		return NotFound("Reply not found")
	}
	return nil
}

func (s *CommentService) owned(ctx context.Context, actingID, commentID primitive.ObjectID) (*models.Comment, error) {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, Wrap(err, "find comment")
	}
	if comment.UserID != actingID {
		return nil, Forbidden("Unauthorized")
	}
	return comment, nil
}

func (s *CommentService) view(ctx context.Context, c *models.Comment) (*models.CommentView, error) {
	views, err := s.views(ctx, []models.Comment{*c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *CommentService) views(ctx context.Context, comments []models.Comment) ([]models.CommentView, error) {
	var ids []primitive.ObjectID
	for _, c := range comments {
		ids = append(ids, c.UserID)
		for _, r := range c.Replies {
			ids = append(ids, r.UserID)
		}
	}
	authors, err := authorsByID(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.CommentView, len(comments))
	for i, c := range comments {
		replies := make([]models.ReplyView, len(c.Replies))
		for j, r := range c.Replies {
			replies[j] = models.ReplyView{Reply: r, Author: authors[r.UserID]}
		}
		out[i] = models.CommentView{
			ID:        c.ID,
			Body:      c.Body,
			UserID:    c.UserID,
			PostID:    c.PostID,
			Author:    authors[c.UserID],
			Replies:   replies,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
	}
	return out, nil
}

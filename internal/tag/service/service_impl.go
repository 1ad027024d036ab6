package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/tag/domain"
	tododomain "github.com/pankaj-raikar/taskhive/internal/todo/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"go.uber.org/zap"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const maxTagNameLength = 50

type service struct {
	log   *zap.Logger
	repo  domain.Repository
	todos tododomain.Repository
	genID *snowflake.Node
}

func New(log *zap.Logger, repo domain.Repository, todos tododomain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		log:   log.Named("tag.service"),
		repo:  repo,
		todos: todos,
		genID: genID,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateTagRequest) (*domain.Tag, error) {
	name, err := normalizeTagName(req.Name)
	if err != nil {
		return nil, err
	}
	if !colorPattern.MatchString(req.Color) {
		return nil, apperr.BadRequest("color must be #RRGGBB")
	}

	if _, err := s.repo.FindByName(ctx, userID, name); err == nil {
		return nil, apperr.BadRequest(fmt.Sprintf("tag %q already exists", name))
	} else if !errors.Is(err, domain.ErrTagNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	tag := &domain.Tag{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Name:      name,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, tag); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, apperr.BadRequest(fmt.Sprintf("tag %q already exists", name))
		}
		return nil, err
	}
	return tag, nil
}

func (s *service) Update(ctx context.Context, userID, tagID snowflake.ID, req domain.UpdateTagRequest) (*domain.Tag, error) {
	tag, err := s.ownedTag(ctx, userID, tagID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		name, err := normalizeTagName(*req.Name)
		if err != nil {
			return nil, err
		}
		if name != tag.Name {
			if _, err := s.repo.FindByName(ctx, userID, name); err == nil {
				return nil, apperr.BadRequest(fmt.Sprintf("tag %q already exists", name))
			} else if !errors.Is(err, domain.ErrTagNotFound) {
				return nil, err
			}
			fields["name"] = name
		}
	}
	if req.Color != nil {
		if !colorPattern.MatchString(*req.Color) {
			return nil, apperr.BadRequest("color must be #RRGGBB")
		}
		fields["color"] = *req.Color
	}

	if err := s.repo.UpdateFields(ctx, tagID, fields); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, apperr.BadRequest("tag name already exists")
		}
		return nil, err
	}
	return s.repo.FindByID(ctx, tagID)
}

func (s *service) Delete(ctx context.Context, userID, tagID snowflake.ID) error {
	if _, err := s.ownedTag(ctx, userID, tagID); err != nil {
		return err
	}

	count, err := s.repo.UsageCount(ctx, tagID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.BadRequest(fmt.Sprintf("tag is used by %d todo(s); remove it from them first", count))
	}
	return s.repo.Delete(ctx, tagID)
}

func (s *service) ListMine(ctx context.Context, userID snowflake.ID) ([]domain.TagWithCount, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Popular(ctx context.Context, userID snowflake.ID, limit int) ([]domain.TagWithCount, error) {
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	return s.repo.Popular(ctx, userID, limit)
}

func (s *service) Search(ctx context.Context, userID snowflake.ID, prefix string, limit int) ([]domain.Tag, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []domain.Tag{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.repo.SearchByPrefix(ctx, userID, prefix, limit)
}

func (s *service) TagsOfTodo(ctx context.Context, userID, todoID snowflake.ID) ([]domain.Tag, error) {
	if _, err := s.ownedTodo(ctx, userID, todoID); err != nil {
		return nil, err
	}
	ids, err := s.repo.TagIDsOfTodo(ctx, todoID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByIDs(ctx, ids)
}

func (s *service) TodosByTag(ctx context.Context, userID, tagID snowflake.ID, completed *bool, p pagination.Pagination) (*domain.TodosByTagResult, error) {
	tag, err := s.ownedTag(ctx, userID, tagID)
	if err != nil {
		return nil, err
	}

	todoIDs, err := s.repo.TodoIDsOfTag(ctx, tagID)
	if err != nil {
		return nil, err
	}
	todos, err := s.todos.FindByIDs(ctx, userID, todoIDs)
	if err != nil {
		return nil, err
	}

	filtered := todos[:0]
	for _, t := range todos {
		if completed == nil || t.Completed == *completed {
			filtered = append(filtered, t)
		}
	}

	page, pageInfo, err := paginateTodos(filtered, p)
	if err != nil {
		return nil, err
	}
	return &domain.TodosByTagResult{Tag: tag, Todos: page, PageInfo: pageInfo}, nil
}

func (s *service) AddTags(ctx context.Context, userID, todoID snowflake.ID, tagIDs []snowflake.ID) (*domain.AttachResult, error) {
	if _, err := s.ownedTodo(ctx, userID, todoID); err != nil {
		return nil, err
	}
	if err := s.assertOwnedTags(ctx, userID, tagIDs); err != nil {
		return nil, err
	}

	existing, err := s.repo.TagIDsOfTodo(ctx, todoID)
	if err != nil {
		return nil, err
	}
	present := make(map[snowflake.ID]bool, len(existing))
	for _, id := range existing {
		present[id] = true
	}

	result := &domain.AttachResult{}
	now := time.Now().UTC()
	for _, tagID := range dedupe(tagIDs) {
		if present[tagID] {
			result.Skipped++
			continue
		}
		err := s.repo.Attach(ctx, &domain.TodoTag{
			ID:        s.genID.Generate(),
			TodoID:    todoID,
			TagID:     tagID,
			CreatedAt: now,
		})
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Added++
	}
	return result, nil
}

func (s *service) RemoveTag(ctx context.Context, userID, todoID, tagID snowflake.ID) error {
	if _, err := s.ownedTodo(ctx, userID, todoID); err != nil {
		return err
	}
	return s.repo.Detach(ctx, todoID, tagID)
}

func (s *service) SetTags(ctx context.Context, userID, todoID snowflake.ID, tagIDs []snowflake.ID) error {
	if _, err := s.ownedTodo(ctx, userID, todoID); err != nil {
		return err
	}
	tagIDs = dedupe(tagIDs)
	if err := s.assertOwnedTags(ctx, userID, tagIDs); err != nil {
		return err
	}

	existing, err := s.repo.TagIDsOfTodo(ctx, todoID)
	if err != nil {
		return err
	}

	want := make(map[snowflake.ID]bool, len(tagIDs))
	for _, id := range tagIDs {
		want[id] = true
	}
	have := make(map[snowflake.ID]bool, len(existing))
	for _, id := range existing {
		have[id] = true
	}

	for _, id := range existing {
		if !want[id] {
			if err := s.repo.Detach(ctx, todoID, id); err != nil {
				return err
			}
		}
	}
	now := time.Now().UTC()
	for _, id := range tagIDs {
		if !have[id] {
			err := s.repo.Attach(ctx, &domain.TodoTag{
				ID:        s.genID.Generate(),
				TodoID:    todoID,
				TagID:     id,
				CreatedAt: now,
			})
			if err != nil && !db.IsDuplicateKeyErr(err) {
				return err
			}
		}
	}
	return nil
}

// Suggested ranks the user's tags by how often they co-occur with the
// tags already on the todo, topping up with overall popularity when
// co-occurrence yields too few.
func (s *service) Suggested(ctx context.Context, userID, todoID snowflake.ID, limit int) ([]domain.SuggestedTag, error) {
	if limit <= 0 || limit > domain.MaxSuggestions {
		limit = domain.MaxSuggestions
	}
	if _, err := s.ownedTodo(ctx, userID, todoID); err != nil {
		return nil, err
	}

	current, err := s.repo.TagIDsOfTodo(ctx, todoID)
	if err != nil {
		return nil, err
	}
	onTodo := make(map[snowflake.ID]bool, len(current))
	for _, id := range current {
		onTodo[id] = true
	}

	scores := map[snowflake.ID]float64{}
	if len(current) > 0 {
		related := map[snowflake.ID]bool{}
		for _, tagID := range current {
			todoIDs, err := s.repo.TodoIDsOfTag(ctx, tagID)
			if err != nil {
				return nil, err
			}
			for _, id := range todoIDs {
				if id != todoID {
					related[id] = true
				}
			}
		}

		relatedIDs := make([]snowflake.ID, 0, len(related))
		for id := range related {
			relatedIDs = append(relatedIDs, id)
		}
		links, err := s.repo.TagsOfTodos(ctx, relatedIDs)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			if !onTodo[link.TagID] {
				scores[link.TagID]++
			}
		}
	}

	// Popularity fallback at a fraction of a co-occurrence point, so real
	// co-occurrence always outranks it.
	if len(scores) < limit {
		popular, err := s.repo.Popular(ctx, userID, limit*2)
		if err != nil {
			return nil, err
		}
		for _, p := range popular {
			if !onTodo[p.ID] {
				if _, ok := scores[p.ID]; !ok {
					scores[p.ID] = float64(p.UsageCount) / 100
				}
			}
		}
	}

	ids := make([]snowflake.ID, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	tags, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	suggestions := make([]domain.SuggestedTag, 0, len(tags))
	for _, t := range tags {
		if t.UserID != userID {
			continue
		}
		suggestions = append(suggestions, domain.SuggestedTag{Tag: t, Score: scores[t.ID]})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Name < suggestions[j].Name
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func (s *service) ownedTag(ctx context.Context, userID, tagID snowflake.ID) (*domain.Tag, error) {
	tag, err := s.repo.FindByID(ctx, tagID)
	if err != nil {
		if errors.Is(err, domain.ErrTagNotFound) {
			return nil, apperr.NotFound("tag not found")
		}
		return nil, err
	}
	if tag.UserID != userID {
		return nil, apperr.NotFound("tag not found")
	}
	return tag, nil
}

func (s *service) ownedTodo(ctx context.Context, userID, todoID snowflake.ID) (*tododomain.Todo, error) {
	todo, err := s.todos.FindByID(ctx, todoID)
	if err != nil {
		if errors.Is(err, tododomain.ErrTodoNotFound) {
			return nil, apperr.NotFound("todo not found")
		}
		return nil, err
	}
	if todo.UserID != userID {
		return nil, apperr.Forbidden("todo belongs to another user")
	}
	return todo, nil
}

func (s *service) assertOwnedTags(ctx context.Context, userID snowflake.ID, tagIDs []snowflake.ID) error {
	tags, err := s.repo.FindByIDs(ctx, dedupe(tagIDs))
	if err != nil {
		return err
	}
	found := make(map[snowflake.ID]bool, len(tags))
	for _, t := range tags {
		if t.UserID != userID {
			return apperr.Forbidden("tag belongs to another user")
		}
		found[t.ID] = true
	}
	for _, id := range dedupe(tagIDs) {
		if !found[id] {
			return apperr.NotFound("tag not found")
		}
	}
	return nil
}

func normalizeTagName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", apperr.BadRequest("tag name is required")
	}
	if len(name) > maxTagNameLength {
		return "", apperr.BadRequest("tag name is too long")
	}
	return name, nil
}

func dedupe(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]bool, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func paginateTodos(todos []tododomain.Todo, p pagination.Pagination) ([]tododomain.Todo, *pagination.PageInfo, error) {
	sort.Slice(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.After(todos[j].CreatedAt)
		}
		return todos[i].ID > todos[j].ID
	})

	start := 0
	if p.PageToken != "" {
		cursor, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return nil, nil, err
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, nil, err
		}
		for i, t := range todos {
			if int64(t.ID) == id {
				start = i + 1
				break
			}
		}
	}

	limit := p.Limit()
	end := start + limit
	hasMore := end < len(todos)
	if end > len(todos) {
		end = len(todos)
	}
	page := todos[start:end]

	info := &pagination.PageInfo{HasMore: hasMore}
	if hasMore && len(page) > 0 {
		last := page[len(page)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, nil, err
		}
		info.NextPageToken = token
	}
	return page, info, nil
}

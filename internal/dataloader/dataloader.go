package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	ProfileByID            *dataloader.Loader
	ReactionCountsByTarget *dataloader.Loader
}

// NewLoaders создает лоадеры на один запрос.
func NewLoaders(store storage.Storage) *Loaders {
	return &Loaders{
		ProfileByID:            dataloader.NewBatchedLoader(profileBatch(store), dataloader.WithWait(time.Millisecond*1)),
		ReactionCountsByTarget: dataloader.NewBatchedLoader(reactionCountsBatch(store), dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}

func errorResults(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

func profileBatch(store storage.Storage) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return errorResults(len(keys), fmt.Errorf("bad profile key %q: %w", k.String(), err))
			}
			ids[i] = id
		}

		// Один запрос к хранилищу на весь батч
		profiles, err := store.GetProfilesByIDs(ctx, ids)
		if err != nil {
			return errorResults(len(keys), err)
		}

		// Результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if p, ok := profiles[id]; ok {
				results[i] = &dataloader.Result{Data: p}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("profile %d: %w", id, domain.ErrNotFound)}
			}
		}
		return results
	}
}

func reactionCountsBatch(store storage.Storage) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		targets := make([]domain.Target, len(keys))
		for i, k := range keys {
			t, err := domain.ParseTarget(k.String())
			if err != nil {
				return errorResults(len(keys), err)
			}
			targets[i] = t
		}

		counts, err := store.ReactionCounts(ctx, targets)
		if err != nil {
			return errorResults(len(keys), err)
		}

		results := make([]*dataloader.Result, len(keys))
		for i, t := range targets {
			results[i] = &dataloader.Result{Data: counts[t]}
		}
		return results
	}
}

// ProfileThunk ставит профиль в очередь батча, значение читается вызовом thunk.
func (l *Loaders) ProfileThunk(ctx context.Context, id int64) func() (*domain.Profile, error) {
	thunk := l.ProfileByID.Load(ctx, dataloader.StringKey(strconv.FormatInt(id, 10)))
	return func() (*domain.Profile, error) {
		v, err := thunk()
		if err != nil {
			return nil, err
		}
		return v.(*domain.Profile), nil
	}
}

// ReactionCountsThunk ставит подсчет реакций цели в очередь батча.
func (l *Loaders) ReactionCountsThunk(ctx context.Context, t domain.Target) func() (domain.ReactionCounts, error) {
	thunk := l.ReactionCountsByTarget.Load(ctx, dataloader.StringKey(t.String()))
	return func() (domain.ReactionCounts, error) {
		v, err := thunk()
		if err != nil {
			return domain.ReactionCounts{}, err
		}
		return v.(domain.ReactionCounts), nil
	}
}

// ClearReactionCounts сбрасывает кэш после переключения реакции в том же запросе.
func (l *Loaders) ClearReactionCounts(ctx context.Context, t domain.Target) {
	l.ReactionCountsByTarget.Clear(ctx, dataloader.StringKey(t.String()))
}

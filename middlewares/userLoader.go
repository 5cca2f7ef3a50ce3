package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/contacts_backend/models"
)

type userReader struct{}

func (r *userReader) getUsers(ctx context.Context, ids []int) []*dataloader.Result[*models.User] {
	resultMap, err := models.MapUsers(ctx, ids)
	if err != nil {
		return handleError[*models.User](len(ids), err)
	}
	return generateLoaderResults(resultMap, ids, func(id int) *models.User {
		return &models.User{ID: id}
	})
}

func GetUser(ctx context.Context, id int) (*models.User, error) {
	loaders := For(ctx)
	if loaders == nil {
		return models.GetUser(ctx, id)
	}
	return loaders.userLoader.Load(ctx, id)()
}

// GetUsers falls back to a single query when no loaders are attached to ctx.
func GetUsers(ctx context.Context, ids []int) ([]*models.User, []error) {
	loaders := For(ctx)
	if loaders == nil {
		resultMap, err := models.MapUsers(ctx, ids)
		if err != nil {
			return nil, []error{err}
		}
		results := make([]*models.User, 0, len(ids))
		for _, id := range ids {
			u, ok := resultMap[id]
			if !ok {
				u = &models.User{ID: id}
			}
			results = append(results, u)
		}
		return results, nil
	}
	return loaders.userLoader.LoadMany(ctx, ids)()
}

package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/contacts_backend/models"
)

type personReader struct{}

func (r *personReader) getPersons(ctx context.Context, ids []int) []*dataloader.Result[*models.Person] {
	resultMap, err := models.MapPersons(ctx, ids)
	if err != nil {
		return handleError[*models.Person](len(ids), err)
	}
	return generateLoaderResults(resultMap, ids, func(id int) *models.Person {
		return &models.Person{ID: id}
	})
}

// GetPerson returns a placeholder with only ID set when the person no longer exists.
func GetPerson(ctx context.Context, id int) (*models.Person, error) {
	loaders := For(ctx)
	if loaders == nil {
		resultMap, err := models.MapPersons(ctx, []int{id})
		if err != nil {
			return nil, err
		}
		if p, ok := resultMap[id]; ok {
			return p, nil
		}
		return &models.Person{ID: id}, nil
	}
	return loaders.personLoader.Load(ctx, id)()
}

func GetPersons(ctx context.Context, ids []int) ([]*models.Person, []error) {
	loaders := For(ctx)
	if loaders == nil {
		resultMap, err := models.MapPersons(ctx, ids)
		if err != nil {
			return nil, []error{err}
		}
		results := make([]*models.Person, 0, len(ids))
		for _, id := range ids {
			p, ok := resultMap[id]
			if !ok {
				p = &models.Person{ID: id}
			}
			results = append(results, p)
		}
		return results, nil
	}
	return loaders.personLoader.LoadMany(ctx, ids)()
}

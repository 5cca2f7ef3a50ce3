package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/contacts_backend/models"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	userLoader   *dataloader.Loader[int, *models.User]
	personLoader *dataloader.Loader[int, *models.Person]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders() *Loaders {
	userReader := &userReader{}
	personReader := &personReader{}

	return &Loaders{
		userLoader:   dataloader.NewBatchedLoader(userReader.getUsers, dataloader.WithWait[int, *models.User](time.Millisecond)),
		personLoader: dataloader.NewBatchedLoader(personReader.getPersons, dataloader.WithWait[int, *models.Person](time.Millisecond)),
	}
}

// LoaderMiddleware gives each request its own loaders so cached rows never outlive the request.
func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithLoaders(c.Request.Context(), NewLoaders()))
		c.Next()
	}
}

func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// For returns the request's loaders, or nil outside an HTTP request.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(loadersKey).(*Loaders)
	return loaders
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns a keyed map into dataloader results in id order;
// missing ids get a placeholder from def
func generateLoaderResults[T any](resultMap map[int]*T, ids []int, def func(id int) *T) []*dataloader.Result[*T] {
	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			result = def(id)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: result})
	}
	return loaderResults
}

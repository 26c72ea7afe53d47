package v1

import (
	"github.com/foresturquhart/indexhook/api/v1/handlers"
	"github.com/labstack/echo/v4"
)

func registerPersonRoutes(g *echo.Group, svc handlers.PersonService, encryptionKey string) {
	handler := handlers.NewPersonHandler(svc, encryptionKey)

	people := g.Group("/people")

	people.POST("", handler.CreatePerson)
	people.GET("", handler.ListPeople)
	people.GET("/:uuid", handler.GetPerson)
	people.PUT("/:uuid", handler.UpdatePerson)
	people.DELETE("/:uuid", handler.DeletePerson)
	people.POST("/search", handler.SearchPeople)
	people.POST("/reindex", handler.ReindexPeople)
}

func RegisterRoutes(e *echo.Echo, svc handlers.PersonService, encryptionKey string) {
	group := e.Group("/v1")

	registerPersonRoutes(group, svc, encryptionKey)
}

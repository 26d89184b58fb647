package http

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
)

// MountDocs sirve Swagger UI en /docs con el spec generado por swag (docs/swagger.json).
// Si el archivo no existe no monta nada y devuelve false; swagger.New entra en pánico sin él.
func MountDocs(app *fiber.App, filePath, title string) bool {
	if _, err := os.Stat(filePath); err != nil {
		return false
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: filePath,
		Path:     "docs",
		Title:    title,
	}))
	return true
}

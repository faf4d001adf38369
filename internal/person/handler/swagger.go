package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the people API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRouter) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>people: Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "people", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Person": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "id": { "type": "string", "description": "24 character hex ObjectID" },
          "name": { "type": "string", "minLength": 1 },
          "age": { "type": "integer" },
          "favoriteFoods": { "type": "array", "items": { "type": "string" } }
        }
      }
    }
  },
  "paths": {
    "/api/people": {
      "post": { "summary": "Insert one person", "responses": { "201": { "description": "stored person with id" }, "400": { "description": "validation failed" } } },
      "get": {
        "summary": "Find people; first=true returns one; sort/limit/select make a chained query",
        "parameters": [
          { "name": "name", "in": "query", "schema": { "type": "string" } },
          { "name": "food", "in": "query", "schema": { "type": "string" } },
          { "name": "age", "in": "query", "schema": { "type": "integer" } },
          { "name": "first", "in": "query", "schema": { "type": "boolean" } },
          { "name": "sort", "in": "query", "schema": { "type": "string" }, "example": "name" },
          { "name": "limit", "in": "query", "schema": { "type": "integer" } },
          { "name": "select", "in": "query", "schema": { "type": "string" }, "example": "-age" }
        ],
        "responses": { "200": { "description": "matching people" }, "404": { "description": "no match (first=true)" } }
      },
      "patch": { "summary": "Find one and update; new=true returns the updated record", "responses": { "200": { "description": "person before or after update" }, "404": { "description": "no match" } } },
      "delete": { "summary": "Delete all matching people", "responses": { "200": { "description": "deletedCount" } } }
    },
    "/api/people/batch": {
      "post": { "summary": "Insert many people", "responses": { "201": { "description": "stored people" } } }
    },
    "/api/people/export": {
      "post": { "summary": "Export a query result to object storage", "responses": { "201": { "description": "key and download url" }, "503": { "description": "storage not configured" } } }
    },
    "/api/people/{id}": {
      "get": { "summary": "Find by id", "responses": { "200": { "description": "person" }, "400": { "description": "malformed id" }, "404": { "description": "absent" } } },
      "put": { "summary": "Load, replace fields and save", "responses": { "200": { "description": "saved person" }, "404": { "description": "absent" } } },
      "delete": { "summary": "Delete by id", "responses": { "200": { "description": "removed person" }, "404": { "description": "absent" } } }
    },
    "/api/people/{id}/foods": {
      "post": { "summary": "Append a favorite food atomically", "responses": { "200": { "description": "updated person" }, "404": { "description": "absent" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`

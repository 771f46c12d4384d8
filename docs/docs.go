// Package docs holds the Swagger description served under /swagger.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "definitions": {
        "envelope.Success": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "message": {"type": "string"}
            }
        },
        "envelope.Error": {
            "type": "object",
            "properties": {
                "errors": {"type": "array", "items": {}},
                "message": {"type": "string"}
            }
        },
        "storage.NoteInput": {
            "type": "object",
            "properties": {
                "slug": {"type": "string"},
                "title": {"type": "string"},
                "body": {"type": "string"}
            }
        },
        "api.purgeRequest": {
            "type": "object",
            "properties": {
                "olderThan": {"type": "string", "format": "date-time"}
            }
        }
    },
    "paths": {
        "/health": {
            "get": {
                "tags": ["system"],
                "summary": "Service health",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.Success"}}}
            }
        },
        "/outcomes": {
            "get": {
                "tags": ["system"],
                "summary": "Outcome table",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.Success"}}}
            }
        },
        "/notes": {
            "get": {
                "tags": ["notes"],
                "summary": "List notes",
                "parameters": [
                    {"type": "integer", "default": 50, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope.Error"}}
                }
            },
            "post": {
                "tags": ["notes"],
                "summary": "Create a note",
                "consumes": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/storage.NoteInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/envelope.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope.Error"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/envelope.Error"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/envelope.Error"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/envelope.Error"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/envelope.Error"}}
                }
            }
        },
        "/notes/purge": {
            "post": {
                "tags": ["notes"],
                "summary": "Purge old notes",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.purgeRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/envelope.Success"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/envelope.Error"}}
                }
            }
        },
        "/notes/{id}": {
            "get": {
                "tags": ["notes"],
                "summary": "Get a note",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.Success"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/envelope.Error"}}
                }
            },
            "put": {
                "tags": ["notes"],
                "summary": "Replace a note",
                "consumes": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/storage.NoteInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.Success"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/envelope.Error"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/envelope.Error"}}
                }
            },
            "delete": {
                "tags": ["notes"],
                "summary": "Delete a note",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/envelope.Error"}}
                }
            },
            "patch": {
                "tags": ["notes"],
                "summary": "Partial update (not supported)",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "501": {"description": "Not Implemented", "schema": {"$ref": "#/definitions/envelope.Error"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "tags": ["jobs"],
                "summary": "Get a purge job",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/envelope.Success"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/envelope.Error"}}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Envelope Service API",
	Description:      "Notes API whose every response uses the {data|errors, message} envelope.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

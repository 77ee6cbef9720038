// Package docs holds the OpenAPI document served at /swagger/. Keep it in step
// with the @Router annotations on the handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/cache": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cache"],
                "summary": "Clear cached entries",
                "parameters": [
                    {"type": "string", "description": "stories, programs, beneficiaries or all", "name": "type", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/cache/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["cache"],
                "summary": "Cache statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/rate-limit": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["rate-limit"],
                "summary": "Rate limit status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/stories": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Creates a story from JSON or multipart/form-data. Multipart accepts title/body as JSON objects or title[en] keys, metadata as JSON and files under \"files\" or \"media\".",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["stories"],
                "summary": "Create a story",
                "parameters": [
                    {"description": "Story content", "name": "story", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.CreateStoryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "413": {"description": "Media too large", "schema": {"$ref": "#/definitions/response.Response"}},
                    "415": {"description": "Unsupported media type", "schema": {"$ref": "#/definitions/response.Response"}},
                    "502": {"description": "Object storage failure", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/stories/bulk-delete": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["stories"],
                "summary": "Delete several stories",
                "parameters": [
                    {"description": "Story IDs", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.BulkDeleteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/stories/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["stories"],
                "summary": "Get a story",
                "parameters": [{"type": "string", "description": "Story ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Story not found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["stories"],
                "summary": "Delete a story",
                "parameters": [{"type": "string", "description": "Story ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Story not found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Partially updates fields, then removes media (removeMedia), edits captions (updateMedia) and appends new files, in that order.",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["stories"],
                "summary": "Update a story",
                "parameters": [
                    {"type": "string", "description": "Story ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "story", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.UpdateStoryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Story not found", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Concurrent modification", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/stories/{id}/media": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["media"],
                "summary": "Add media to a story",
                "parameters": [
                    {"type": "string", "description": "Story ID", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "Image or video files", "name": "files", "in": "formData", "required": true},
                    {"type": "string", "description": "image/video per file", "name": "mediaTypes", "in": "formData"},
                    {"type": "string", "description": "Caption per file", "name": "captions", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Story not found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["media"],
                "summary": "Update a media caption",
                "parameters": [
                    {"type": "string", "description": "Story ID", "name": "id", "in": "path", "required": true},
                    {"description": "Caption", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.CaptionUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Story or media not found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/stories/{id}/media/{publicId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["media"],
                "summary": "Remove a media item",
                "parameters": [
                    {"type": "string", "description": "Story ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Object key of the media item", "name": "publicId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Story or media not found", "schema": {"$ref": "#/definitions/response.Response"}},
                    "502": {"description": "Object storage failure", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/stories/{id}/reconcile": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["media"],
                "summary": "Verify and repair a story's media",
                "parameters": [{"type": "string", "description": "Story ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Story not found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/stories/{id}/share": {
            "post": {
                "tags": ["stories"],
                "summary": "Record a share",
                "parameters": [{"type": "string", "description": "Story ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Story not found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/ws": {
            "get": {
                "description": "Upgrades to a WebSocket that receives story.* events. Pass story to follow a single story.",
                "tags": ["events"],
                "summary": "Story events stream",
                "parameters": [
                    {"type": "string", "description": "JWT", "name": "token", "in": "query", "required": true},
                    {"type": "string", "description": "Story ID to follow", "name": "story", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/ws/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Event stream statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "types.BulkDeleteRequest": {
            "type": "object",
            "required": ["ids"],
            "properties": {
                "ids": {"type": "array", "minItems": 1, "items": {"type": "string"}}
            }
        },
        "types.CaptionUpdateRequest": {
            "type": "object",
            "required": ["publicId"],
            "properties": {
                "caption": {"type": "string"},
                "publicId": {"type": "string"}
            }
        },
        "types.MetadataPatch": {
            "type": "object",
            "properties": {
                "durationSeconds": {"type": "number"},
                "location": {"type": "string"},
                "tags": {}
            }
        },
        "types.CreateStoryRequest": {
            "type": "object",
            "required": ["authorName", "authorRole", "body", "title"],
            "properties": {
                "authorName": {"type": "string"},
                "authorRole": {"type": "string", "enum": ["beneficiary", "staff", "volunteer", "partner", "donor"]},
                "beneficiaryId": {"type": "string"},
                "body": {"type": "object", "additionalProperties": {"type": "string"}},
                "captions": {},
                "isFeatured": {"type": "boolean"},
                "isPublished": {"type": "boolean"},
                "language": {"type": "string", "enum": ["en", "rw"]},
                "mediaTypes": {},
                "metadata": {"$ref": "#/definitions/types.MetadataPatch"},
                "programId": {"type": "string"},
                "publishedDate": {"type": "string", "example": "2024-06-01"},
                "title": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "types.UpdateStoryRequest": {
            "type": "object",
            "properties": {
                "authorName": {"type": "string"},
                "authorRole": {"type": "string"},
                "beneficiaryId": {"type": "string", "x-nullable": true},
                "body": {"type": "object", "additionalProperties": {"type": "string"}},
                "captions": {},
                "isFeatured": {"type": "boolean"},
                "isPublished": {"type": "boolean"},
                "language": {"type": "string"},
                "mediaTypes": {},
                "metadata": {"$ref": "#/definitions/types.MetadataPatch"},
                "programId": {"type": "string", "x-nullable": true},
                "publishedDate": {"type": "string"},
                "removeMedia": {},
                "title": {"type": "object", "additionalProperties": {"type": "string"}},
                "updateMedia": {}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Impact Stories API",
	Description:      "Stories with localized text and image/video media kept in object storage.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

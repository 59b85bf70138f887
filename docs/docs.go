// Package docs registers the OpenAPI description served at /api-docs.
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
        "/health": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Liveness",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.HealthResponse"}}}}
        },
        "/v1/scan/files": {
            "post": {"consumes": ["multipart/form-data"], "produces": ["application/json"], "tags": ["scan"],
                "summary": "Select image files",
                "description": "Online and idle: starts a review batch. Offline: queues every file with the prefilled fields.",
                "parameters": [
                    {"type": "file", "name": "images", "in": "formData", "required": true, "description": "Label images"},
                    {"type": "string", "name": "productName", "in": "formData"},
                    {"type": "string", "name": "bagNo", "in": "formData"},
                    {"type": "string", "name": "quantity", "in": "formData"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/model.SelectFilesResponse"}},
                    "409": {"description": "Session already active", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "422": {"description": "No files", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }}
        },
        "/v1/scan/queue": {
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["scan"],
                "summary": "Review queued images",
                "parameters": [{"in": "body", "name": "request", "schema": {"$ref": "#/definitions/model.SelectQueuedRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/model.SessionResponse"}},
                    "409": {"description": "Session already active", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "422": {"description": "Nothing to process", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }}
        },
        "/v1/scan/session": {
            "get": {"produces": ["application/json"], "tags": ["scan"], "summary": "Current scan session",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}}}}
        },
        "/v1/scan/session/fields": {
            "patch": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["scan"],
                "summary": "Change one field of the record under review",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/model.ChangeFieldRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}},
                    "409": {"description": "No active record", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "422": {"description": "Unknown field", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }}
        },
        "/v1/scan/session/confirm": {
            "post": {"produces": ["application/json"], "tags": ["scan"], "summary": "Confirm the record under review",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ConfirmResponse"}},
                    "409": {"description": "No active record", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }}
        },
        "/v1/scan/session/suggestion": {
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["scan"],
                "summary": "Apply a known product name",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/model.ApplySuggestionRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "409": {"description": "No record under review", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }}
        },
        "/v1/scan/session/skip": {
            "post": {"produces": ["application/json"], "tags": ["scan"], "summary": "Skip the current item",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}}}}
        },
        "/v1/scan/session/cancel": {
            "post": {"produces": ["application/json"], "tags": ["scan"], "summary": "Cancel the current item",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}}}}
        },
        "/v1/queue": {
            "get": {"produces": ["application/json"], "tags": ["queue"], "summary": "List pending images",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.QueueListResponse"}}}}
        },
        "/v1/queue/{id}": {
            "patch": {"consumes": ["application/json"], "tags": ["queue"], "summary": "Edit prefilled fields of a pending image",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/model.UpdateQueueFieldsRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}, "409": {"description": "Item is being processed"}}},
            "delete": {"tags": ["queue"], "summary": "Remove a pending image",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "409": {"description": "Item is being processed"}}}
        },
        "/v1/queue/{id}/image": {
            "get": {"produces": ["application/octet-stream"], "tags": ["queue"], "summary": "Pending image bytes",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/v1/sync": {
            "post": {"produces": ["application/json"], "tags": ["queue"], "summary": "Run a drain pass now",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SyncResponse"}}}}
        },
        "/v1/connectivity": {
            "get": {"produces": ["application/json"], "tags": ["connectivity"], "summary": "Connectivity state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ConnectivityResponse"}}}},
            "put": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["connectivity"],
                "summary": "Set connectivity state",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/model.ConnectivityResponse"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ConnectivityResponse"}}}}
        },
        "/v1/products": {
            "get": {"produces": ["application/json"], "tags": ["products"], "summary": "List confirmed products",
                "parameters": [
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "name": "sort", "in": "query"},
                    {"type": "string", "name": "direction", "in": "query", "enum": ["asc", "desc"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ProductsListResponse"}}}},
            "delete": {"tags": ["products"], "summary": "Delete every confirmed product",
                "responses": {"204": {"description": "No Content"}}}
        },
        "/v1/products/names": {
            "get": {"produces": ["application/json"], "tags": ["products"], "summary": "Known product names",
                "parameters": [{"type": "string", "name": "q", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ProductNamesResponse"}}}}
        },
        "/v1/products/{serial}": {
            "delete": {"tags": ["products"], "summary": "Delete a confirmed product",
                "parameters": [{"type": "integer", "name": "serial", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not found"}}}
        },
        "/v1/products/{serial}/edit": {
            "post": {"produces": ["application/json"], "tags": ["products"], "summary": "Open a confirmed product for editing",
                "parameters": [{"type": "integer", "name": "serial", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}},
                    "409": {"description": "Session already active"}
                }}
        },
        "/v1/images/{ref}": {
            "get": {"produces": ["application/octet-stream"], "tags": ["products"], "summary": "Resolve a display reference",
                "parameters": [{"type": "string", "name": "ref", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown or revoked reference"}}}
        },
        "/v1/notifications": {
            "get": {"produces": ["application/json"], "tags": ["notifications"], "summary": "Poll notifications",
                "parameters": [{"type": "integer", "name": "after", "in": "query"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/orders": {
            "get": {"produces": ["application/json"], "tags": ["orders"], "summary": "List an employee's orders",
                "parameters": [{"type": "string", "name": "employee", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["orders"],
                "summary": "Place a wholesale order",
                "responses": {"201": {"description": "Created"}, "422": {"description": "Validation failed"}}}
        },
        "/v1/orders/all": {
            "get": {"produces": ["application/json"], "tags": ["orders"], "summary": "List every order",
                "parameters": [
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "name": "date", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/orders/{id}/status": {
            "patch": {"consumes": ["application/json"], "tags": ["orders"], "summary": "Change an order's status",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not found"}}}
        },
        "/v1/orders/{id}/items": {
            "put": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["orders"],
                "summary": "Replace the items of a pending order",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Order is no longer pending"}}}
        }
    },
    "definitions": {
        "domain.ProductDetails": {
            "type": "object",
            "properties": {
                "Product Name": {"type": "string"},
                "Bag No": {"type": "string"},
                "Batch No": {"type": "string"},
                "Manufacturing Date": {"type": "string"},
                "Expiry Date": {"type": "string"},
                "MRP": {"type": "string"},
                "Weight": {"type": "string"},
                "Quantity": {"type": "string"}
            }
        },
        "model.ErrorDetail": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
        },
        "model.ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/model.ErrorDetail"}}
            }
        },
        "model.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "online": {"type": "boolean"}, "backend": {"type": "string"}}
        },
        "model.SessionResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["idle", "awaiting-analysis", "reviewing"]},
                "mode": {"type": "string", "enum": ["new", "edit"]},
                "index": {"type": "integer"},
                "total": {"type": "integer"},
                "filename": {"type": "string"},
                "record": {"$ref": "#/definitions/domain.ProductDetails"},
                "imageRef": {"type": "string"},
                "imageUrl": {"type": "string"},
                "error": {"type": "string"},
                "analyzing": {"type": "boolean"},
                "fromQueue": {"type": "boolean"},
                "canConfirm": {"type": "boolean"},
                "editTimestamp": {"type": "integer"}
            }
        },
        "model.SelectFilesResponse": {
            "type": "object",
            "properties": {
                "queued": {"type": "array", "items": {"type": "integer"}},
                "started": {"type": "boolean"},
                "total": {"type": "integer"},
                "session": {"$ref": "#/definitions/model.SessionResponse"}
            }
        },
        "model.SelectQueuedRequest": {
            "type": "object",
            "properties": {"ids": {"type": "array", "items": {"type": "integer"}}}
        },
        "model.ChangeFieldRequest": {
            "type": "object",
            "required": ["field"],
            "properties": {"field": {"type": "string"}, "value": {"type": "string"}}
        },
        "model.ConfirmResponse": {
            "type": "object",
            "properties": {"timestamp": {"type": "integer"}, "session": {"$ref": "#/definitions/model.SessionResponse"}}
        },
        "model.QueueListResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"type": "object"}}, "total": {"type": "integer"}}
        },
        "model.UpdateQueueFieldsRequest": {
            "type": "object",
            "required": ["fields"],
            "properties": {"fields": {"type": "object", "additionalProperties": {"type": "string"}}}
        },
        "model.SyncResponse": {
            "type": "object",
            "properties": {
                "started": {"type": "boolean"},
                "attempted": {"type": "integer"},
                "synced": {"type": "integer"},
                "failed": {"type": "integer"},
                "interrupted": {"type": "boolean"},
                "pending": {"type": "integer"}
            }
        },
        "model.ConnectivityResponse": {
            "type": "object",
            "properties": {"online": {"type": "boolean"}}
        },
        "model.ProductNamesResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"type": "string"}}}
        },
        "model.ApplySuggestionRequest": {
            "type": "object",
            "required": ["productName"],
            "properties": {"productName": {"type": "string"}}
        },
        "model.ProductsListResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"type": "object"}},
                "total": {"type": "integer"},
                "shown": {"type": "integer"}
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
	Title:            "LabelLens API",
	Description:      "Offline-capable product label scanning: review batches, a durable pending queue and a sync engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

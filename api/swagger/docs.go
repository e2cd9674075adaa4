// Package swagger holds the OpenAPI document served at /swagger. It is maintained by hand to
// match the route annotations in internal/handler.
package swagger

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
        "/api/auth/login": {
            "post": {
                "description": "Authenticates against the dealership API and stores the access token as an HttpOnly cookie",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log out",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/dashboard/admin": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Sales, wholesale and purchase summaries, balance, stock value and per-commercial stats. Sections that could not be loaded are listed in \"sections\".",
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Admin dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/dashboard/accountant": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Accountant dashboard",
                "parameters": [
                    {"type": "string", "description": "monthly (default) or yearly", "name": "period", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/dashboard/commercial/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Dashboard of the logged-in commercial",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/dashboard/commercial/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Commercial dashboard",
                "parameters": [
                    {"type": "integer", "description": "Commercial ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/dashboard/marketer": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Marketer dashboard",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/inventory": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Filters the whole catalog and reveals it 12 cars at a time. Prices are compared in DZD.",
                "produces": ["application/json"],
                "tags": ["inventory"],
                "summary": "Browse inventory",
                "parameters": [
                    {"type": "string", "description": "Model substring", "name": "model", "in": "query"},
                    {"type": "string", "description": "Color", "name": "color", "in": "query"},
                    {"type": "string", "description": "Fuel type", "name": "fuel_type", "in": "query"},
                    {"type": "string", "description": "Country of origin", "name": "country", "in": "query"},
                    {"type": "integer", "description": "Minimum year", "name": "year_min", "in": "query"},
                    {"type": "integer", "description": "Maximum year", "name": "year_max", "in": "query"},
                    {"type": "number", "description": "Minimum price in DZD", "name": "price_min", "in": "query"},
                    {"type": "number", "description": "Maximum price in DZD", "name": "price_max", "in": "query"},
                    {"type": "integer", "description": "Pages revealed so far (default 1)", "name": "pages", "in": "query"},
                    {"type": "integer", "description": "Cars per page (default 12)", "name": "page_size", "in": "query"},
                    {"type": "string", "description": "criteria_key of the previous page; a different key starts again at page one", "name": "key", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/currencies": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["currencies"],
                "summary": "List currencies",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/currencies/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Edits the DZD rate upstream, then records a rate snapshot and an audit entry",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["currencies"],
                "summary": "Update an exchange rate",
                "parameters": [
                    {"type": "integer", "description": "Currency ID", "name": "id", "in": "path", "required": true},
                    {"description": "New rate", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.UpdateCurrencyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/currencies/{id}/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["currencies"],
                "summary": "Exchange rate history",
                "parameters": [
                    {"type": "integer", "description": "Currency ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Number of items per page (default 20)", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/resources/{resource}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Read-only passthrough to the dealership API",
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "List a resource",
                "parameters": [
                    {"type": "string", "description": "Resource name", "name": "resource", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Create a record",
                "parameters": [
                    {"type": "string", "description": "Resource name", "name": "resource", "in": "path", "required": true},
                    {"description": "Record, as the dealership API expects it", "name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/resources/{resource}/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Get one record",
                "parameters": [
                    {"type": "string", "description": "Resource name", "name": "resource", "in": "path", "required": true},
                    {"type": "string", "description": "Record ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Update a record",
                "parameters": [
                    {"type": "string", "description": "Resource name", "name": "resource", "in": "path", "required": true},
                    {"type": "string", "description": "Record ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to update", "name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Delete a record",
                "parameters": [
                    {"type": "string", "description": "Resource name", "name": "resource", "in": "path", "required": true},
                    {"type": "string", "description": "Record ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/api/resources/{resource}/{id}/images": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Attaches an image to a car or a social link",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "Upload an image",
                "parameters": [
                    {"type": "string", "description": "cars or social_links", "name": "resource", "in": "path", "required": true},
                    {"type": "string", "description": "Record ID", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "Image file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/expenses/{period}/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Update expense rollup",
                "parameters": [
                    {"type": "string", "description": "monthly or yearly", "name": "period", "in": "path", "required": true},
                    {"type": "integer", "description": "Rollup ID", "name": "id", "in": "path", "required": true},
                    {"description": "Purchases, transport and other", "name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/audit-logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Retrieves the audit trail of create, update, delete, upload and rate changes",
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Get audit logs",
                "parameters": [
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Number of items per page (default 20)", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Filter by resource, e.g. cars", "name": "resource", "in": "query"},
                    {"type": "string", "description": "Filter by action, e.g. UPDATE_RATE", "name": "action", "in": "query"},
                    {"type": "string", "description": "Filter by actor", "name": "actor", "in": "query"},
                    {"type": "string", "description": "Filter by entity id", "name": "entity_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        }
    },
    "definitions": {
        "response.Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "page": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "pagination": {"$ref": "#/definitions/response.Pagination"},
                "redirect": {"description": "login route after a 401", "type": "string"},
                "sections": {"description": "per-section errors of a partial response", "type": "object", "additionalProperties": {"type": "string"}},
                "status": {"description": "\"success\", \"partial\" or \"error\"", "type": "string"},
                "status_code": {"description": "HTTP status code", "type": "integer"}
            }
        },
        "service.LoginRequest": {
            "type": "object",
            "required": ["password", "phone_number"],
            "properties": {
                "password": {"type": "string"},
                "phone_number": {"type": "string"}
            }
        },
        "service.UpdateCurrencyRequest": {
            "type": "object",
            "required": ["exchange_rate_to_dzd"],
            "properties": {
                "code": {"type": "string"},
                "exchange_rate_to_dzd": {"description": "Decimal string, e.g. \"145.50\"", "type": "string"},
                "name": {"type": "string"}
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
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Dealership Gateway API",
	Description:      "Backend-for-frontend of the car dealership: role dashboards, inventory browsing, currency management and an audited proxy to the dealership API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

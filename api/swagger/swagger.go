package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Portal API",
        "description": "Backend for the school management portal",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, account activation and password management"},
        {"name": "Setup", "description": "First-run installation wizard"},
        {"name": "License", "description": "License activation and status"},
        {"name": "Entities", "description": "Generic CRUD over the registered collections"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/api/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate a principal",
                "description": "Accepts an admission number, staff id or username. Provisioned accounts that never chose a password receive a needsActivation response instead of a token.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/activate-account": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Activate a provisioned account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActivateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "404": {"description": "Unknown account", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Old password incorrect", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/setup/status": {
            "get": {
                "tags": ["Setup"],
                "summary": "Installation status",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/setup": {
            "post": {
                "tags": ["Setup"],
                "summary": "Run first-time setup",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetupRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Already installed", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/license/activate": {
            "post": {
                "tags": ["License"],
                "summary": "Activate or renew the license",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActivateLicenseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid product key", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "403": {"description": "Admin only", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/license/status": {
            "get": {
                "tags": ["License"],
                "summary": "Current license status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Admin only", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/{entity}": {
            "get": {
                "tags": ["Entities"],
                "summary": "List a collection",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "entity", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Unknown entity", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            },
            "post": {
                "tags": ["Entities"],
                "summary": "Create a record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "entity", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "403": {"description": "License locked or expired", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "409": {"description": "Duplicate key", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/{entity}/{id}": {
            "put": {
                "tags": ["Entities"],
                "summary": "Update a record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "entity", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            },
            "delete": {
                "tags": ["Entities"],
                "summary": "Delete a record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "entity", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/{entity}/export": {
            "get": {
                "tags": ["Entities"],
                "summary": "Export a collection",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "entity", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Unknown format", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"type": "object"}
            }
        },
        "ActivateRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string", "minLength": 6}
            },
            "required": ["username", "password"]
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "oldPassword": {"type": "string"},
                "newPassword": {"type": "string", "minLength": 6}
            },
            "required": ["userId", "oldPassword", "newPassword"]
        },
        "SetupRequest": {
            "type": "object",
            "properties": {
                "schoolName": {"type": "string"},
                "adminUsername": {"type": "string"},
                "adminPassword": {"type": "string", "minLength": 6},
                "productKey": {"type": "string"}
            },
            "required": ["schoolName", "adminUsername", "adminPassword", "productKey"]
        },
        "ActivateLicenseRequest": {
            "type": "object",
            "properties": {
                "productKey": {"type": "string"},
                "durationInDays": {"type": "integer"}
            },
            "required": ["productKey", "durationInDays"]
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "code": {"type": "string"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

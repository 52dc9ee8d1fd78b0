package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Records API",
        "description": "REST backend for student-records management",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Student record lifecycle, search and statistics"},
        {"name": "Authentication", "description": "Login, token validation and logout"}
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List active students ordered by last then first name",
                "responses": {
                    "200": {"description": "Student list"}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error with per-field detail"}
                }
            }
        },
        "/api/v1/students/search": {
            "get": {
                "tags": ["Students"],
                "summary": "Search students by name, email or course substring",
                "parameters": [
                    {"name": "term", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Matching students"},
                    "400": {"description": "Blank search term"}
                }
            }
        },
        "/api/v1/students/statistics": {
            "get": {
                "tags": ["Students"],
                "summary": "Aggregate statistics over active students",
                "responses": {
                    "200": {"description": "Statistics"}
                }
            }
        },
        "/api/v1/students/export": {
            "get": {
                "tags": ["Students"],
                "summary": "Download the active roster as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Roster file"},
                    "400": {"description": "Unsupported format"}
                }
            }
        },
        "/api/v1/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get one active student",
                "responses": {
                    "200": {"description": "Student"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Replace every field of a student",
                "responses": {
                    "200": {"description": "Updated student"},
                    "400": {"description": "Validation error"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Soft-delete a student",
                "responses": {
                    "200": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate and receive a session token",
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Invalid username or password"}
                }
            }
        },
        "/api/v1/auth/validate": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Validate a session token",
                "responses": {
                    "200": {"description": "Validation outcome, never an error"}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Acknowledge logout",
                "responses": {
                    "200": {"description": "Acknowledged"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "array", "items": {"type": "object"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
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

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutoring Orchestrator API",
        "description": "Event-driven lifecycle orchestration for peer tutoring sessions and class requests.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Events", "description": "Change notification ingress"},
        {"name": "Sweeps", "description": "Daily auto-completion of past sessions"},
        {"name": "Matching", "description": "Tutor availability matching"},
        {"name": "Hours", "description": "Tutor hour logs and exports"}
    ],
    "paths": {
        "/events": {
            "post": {
                "tags": ["Events"],
                "summary": "Queue a change notification",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/EventRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sweeps": {
            "post": {
                "tags": ["Sweeps"],
                "summary": "Complete scheduled sessions dated before today",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": false, "schema": {"$ref": "#/definitions/SweepRequest"}}
                ],
                "responses": {
                    "200": {"description": "Sweep finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Batch write failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/matches/preview": {
            "post": {
                "tags": ["Matching"],
                "summary": "Preview tutor matches without notifying",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/MatchPreviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "Matches keyed by tutor uid", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tutors/{uid}/hours": {
            "get": {
                "tags": ["Hours"],
                "summary": "List or export a tutor's hour entries",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json", "text/csv", "application/pdf"],
                "parameters": [
                    {"in": "path", "name": "uid", "required": true, "type": "string"},
                    {"in": "query", "name": "from", "type": "string", "description": "YYYY-MM-DD"},
                    {"in": "query", "name": "to", "type": "string", "description": "YYYY-MM-DD"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["json", "csv", "pdf"]},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Entries or file download"},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EventRequest": {
            "type": "object",
            "required": ["collection", "kind", "documentId", "after"],
            "properties": {
                "id": {"type": "string"},
                "collection": {"type": "string", "enum": ["Users", "Sessions", "ClassRequests", "TutoringRequests", "HourEntries", "CycleDays"]},
                "kind": {"type": "string", "enum": ["create", "update"]},
                "documentId": {"type": "string"},
                "before": {"type": "object"},
                "after": {"type": "object"},
                "occurredAt": {"type": "string", "format": "date-time"}
            }
        },
        "SweepRequest": {
            "type": "object",
            "properties": {
                "today": {"type": "string", "description": "YYYY-MM-DD"}
            }
        },
        "Slot": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "cycleDay": {"type": "string"},
                "block": {"type": "string"}
            }
        },
        "MatchPreviewRequest": {
            "type": "object",
            "required": ["class", "availability"],
            "properties": {
                "class": {"type": "string"},
                "subject": {"type": "string"},
                "availability": {"type": "array", "items": {"$ref": "#/definitions/Slot"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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

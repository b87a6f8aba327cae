package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Presensi API",
        "description": "Session presence tracking and attendance reminder service",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Session lifecycle and presence scans"},
        {"name": "Students", "description": "Cumulative attendance standing"},
        {"name": "Reminders", "description": "Reminder log and scheduler controls"}
    ],
    "paths": {
        "/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Open a scannable session for a meeting week",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OpenSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session already opened"}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get a session with its windows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/windows": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Open the second scan window of a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "First window still open or capacity reached"}
                }
            }
        },
        "/sessions/scan": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Record a presence scan against a window",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPresenceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/scores": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Attendance tiers for every enrolled student of a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/standing": {
            "get": {
                "tags": ["Students"],
                "summary": "Cumulative attendance standing of a student on a meeting",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "meetingId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reminders": {
            "get": {
                "tags": ["Reminders"],
                "summary": "List reminder dispatch records",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "sessionId", "in": "query", "type": "string"},
                    {"name": "outcome", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reminders/run": {
            "post": {
                "tags": ["Reminders"],
                "summary": "Trigger one reminder scan immediately",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reminders/scheduler": {
            "get": {
                "tags": ["Reminders"],
                "summary": "Scheduler state snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "OpenSessionRequest": {
            "type": "object",
            "required": ["meeting_id", "week"],
            "properties": {
                "meeting_id": {"type": "string"},
                "week": {"type": "integer"},
                "window_minutes": {"type": "integer"}
            }
        },
        "RecordPresenceRequest": {
            "type": "object",
            "required": ["student_id", "window_id"],
            "properties": {
                "student_id": {"type": "string"},
                "window_id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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

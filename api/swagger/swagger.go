package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "BrightPath Scheduling API",
        "description": "Adaptive weekly schedule generation for homeschooling families",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Preferences", "description": "Onboarding questionnaire and derived features"},
        {"name": "Profiles", "description": "Children, subjects and commitments"},
        {"name": "Schedules", "description": "Weekly schedule generation, views and exports"},
        {"name": "Activity", "description": "Schedule item outcomes"},
        {"name": "Feedback", "description": "Feedback ingestion and evaluator administration"}
    ],
    "paths": {
        "/families/{familyId}/preferences": {
            "get": {
                "tags": ["Preferences"],
                "summary": "Get the latest preference submission",
                "parameters": [
                    {"name": "familyId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Preferences"],
                "summary": "Submit the preference questionnaire",
                "parameters": [
                    {"name": "familyId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QuestionnaireRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/families/{familyId}/children": {
            "post": {
                "tags": ["Profiles"],
                "summary": "Register a child profile",
                "parameters": [
                    {"name": "familyId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateChildRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/children/{childId}": {
            "get": {
                "tags": ["Profiles"],
                "summary": "Get a child profile",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Profiles"],
                "summary": "Update a child profile",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateChildRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/children/{childId}/subjects": {
            "get": {
                "tags": ["Profiles"],
                "summary": "List a child's subjects",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Profiles"],
                "summary": "Add a subject",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSubjectRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{id}": {
            "delete": {
                "tags": ["Profiles"],
                "summary": "Remove a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/families/{familyId}/commitments": {
            "get": {
                "tags": ["Profiles"],
                "summary": "List commitments",
                "parameters": [
                    {"name": "familyId", "in": "path", "required": true, "type": "string"},
                    {"name": "childId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Profiles"],
                "summary": "Add a commitment",
                "parameters": [
                    {"name": "familyId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCommitmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commitments/{id}": {
            "delete": {
                "tags": ["Profiles"],
                "summary": "Remove a commitment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/children/{childId}/schedule/generate": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate a new weekly schedule",
                "description": "Supersedes the previous active schedule for the week. Concurrent regenerations lose with 409 REGENERATION_RACE.",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Constraint conflict or regeneration race", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/children/{childId}/schedule/active": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get the active schedule for a week",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "weekStart", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/children/{childId}/schedule/export": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Render the active week as a printable file",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "weekStart", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Download a rendered export by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File attachment"}
                }
            }
        },
        "/schedule-items/{id}/complete": {
            "post": {
                "tags": ["Activity"],
                "summary": "Mark a schedule item completed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CompleteItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule-items/{id}/reschedule": {
            "post": {
                "tags": ["Activity"],
                "summary": "Move a schedule item to a new slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlap or already rescheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule-items/{id}/skip": {
            "post": {
                "tags": ["Activity"],
                "summary": "Record a schedule item as skipped",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/schedules/{id}/activity": {
            "get": {
                "tags": ["Activity"],
                "summary": "Get the outcome log of a schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/items": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a schedule version with its items",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/feedback": {
            "post": {
                "tags": ["Feedback"],
                "summary": "Submit feedback for a schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitFeedbackRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evaluator/retrain": {
            "post": {
                "tags": ["Feedback"],
                "summary": "Trigger an evaluator retraining run",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evaluator/models": {
            "get": {
                "tags": ["Feedback"],
                "summary": "List evaluator model versions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evaluator/models/{id}/activate": {
            "post": {
                "tags": ["Feedback"],
                "summary": "Activate an evaluator model version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "QuestionnaireRequest": {
            "type": "object",
            "properties": {
                "ratings": {"type": "object", "additionalProperties": {"type": "integer"}},
                "categories": {"type": "object", "additionalProperties": {"type": "string"}}
            },
            "required": ["ratings"]
        },
        "CreateChildRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "age": {"type": "integer"},
                "learningWindows": {"type": "array", "items": {"type": "string"}},
                "hoursStart": {"type": "string"},
                "hoursEnd": {"type": "string"}
            },
            "required": ["name", "age", "hoursStart", "hoursEnd"]
        },
        "CreateSubjectRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "isCore": {"type": "boolean"},
                "sessionMinutes": {"type": "integer"},
                "frequency": {"type": "string"},
                "involvement": {"type": "string"},
                "fixedDay": {"type": "integer"},
                "fixedStart": {"type": "string"},
                "interestLevel": {"type": "integer"}
            },
            "required": ["name", "sessionMinutes", "frequency"]
        },
        "CreateCommitmentRequest": {
            "type": "object",
            "properties": {
                "childId": {"type": "string"},
                "name": {"type": "string"},
                "recurrence": {"type": "string"},
                "days": {"type": "array", "items": {"type": "integer"}},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "date": {"type": "string"}
            },
            "required": ["name", "recurrence", "start", "end"]
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "properties": {
                "weekStart": {"type": "string"}
            },
            "required": ["weekStart"]
        },
        "CompleteItemRequest": {
            "type": "object",
            "properties": {
                "actualDurationMinutes": {"type": "integer"}
            }
        },
        "RescheduleItemRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "integer"},
                "start": {"type": "string"},
                "end": {"type": "string"}
            },
            "required": ["day", "start", "end"]
        },
        "SubmitFeedbackRequest": {
            "type": "object",
            "properties": {
                "starRating": {"type": "integer"},
                "subRatings": {"type": "object", "additionalProperties": {"type": "integer"}},
                "comments": {"type": "string"}
            },
            "required": ["starRating"]
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

// Package docs registers the Swagger document of the trainer API.
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
        "/sessions": {
            "post": {
                "description": "Samples questions for a new session. Only one session may be active or paused at a time.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Start an exam session",
                "parameters": [
                    {
                        "description": "Session options",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.CreateSessionRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "another session is open"},
                    "507": {"description": "Insufficient Storage"}
                }
            }
        },
        "/sessions/practice": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Start a mistake-practice session",
                "parameters": [
                    {
                        "description": "Practice options",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.CreatePracticeSessionRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"},
                    "422": {"description": "no mistakes recorded"}
                }
            }
        },
        "/sessions/{sessionID}/answers": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Answer a question",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "sessionID", "in": "path", "required": true},
                    {
                        "description": "Answer",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.SubmitAnswerRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "session is not active"}
                }
            }
        },
        "/sessions/{sessionID}/complete": {
            "post": {
                "description": "Scores the session and stores the result. Completing twice returns the same result.",
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Complete a session",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "sessionID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"},
                    "507": {"description": "Insufficient Storage"}
                }
            }
        },
        "/results": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Results"],
                "summary": "List results",
                "parameters": [
                    {"type": "boolean", "description": "Only passed or failed results", "name": "passed", "in": "query"},
                    {"type": "string", "description": "normal or mistake-practice", "name": "type", "in": "query"},
                    {"type": "string", "description": "RFC 3339 lower bound of completion time", "name": "from", "in": "query"},
                    {"type": "string", "description": "RFC 3339 upper bound of completion time", "name": "to", "in": "query"},
                    {"type": "integer", "description": "Newest n results", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/results/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Results"],
                "summary": "Progress summary",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/mistakes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Mistakes"],
                "summary": "List past mistakes",
                "parameters": [
                    {"type": "string", "description": "Category name or slug", "name": "category", "in": "query"},
                    {"type": "string", "description": "Comma-separated result IDs", "name": "tests", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/preferences": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Preferences"],
                "summary": "Update preferences",
                "parameters": [
                    {
                        "description": "Fields to change",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.UpdatePreferencesRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        }
    },
    "definitions": {
        "api.CreateSessionRequest": {
            "type": "object",
            "properties": {
                "language": {"type": "string", "example": "de"},
                "question_count": {"type": "integer", "example": 33},
                "seed": {"type": "integer"},
                "state": {"type": "string", "example": "BY"}
            }
        },
        "api.CreatePracticeSessionRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "language": {"type": "string", "example": "de"},
                "max_questions": {"type": "integer", "example": 33},
                "seed": {"type": "integer"},
                "test_ids": {"type": "array", "items": {"type": "string"}},
                "type": {"type": "string", "example": "all"}
            }
        },
        "api.SubmitAnswerRequest": {
            "type": "object",
            "properties": {
                "answer": {"type": "string", "example": "b"},
                "question_id": {"type": "string"}
            }
        },
        "api.UpdatePreferencesRequest": {
            "type": "object",
            "properties": {
                "appMode": {"type": "string", "example": "exam"},
                "language": {"type": "string", "example": "en"},
                "theme": {"type": "string", "example": "dark"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Leben in Deutschland Trainer API",
	Description:      "Exam sessions, results and mistake practice for the Leben in Deutschland test.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Engine API",
        "description": "Course timetable generation and optimization",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Timetables", "description": "Synchronous solves and timetable jobs"},
        {"name": "Health", "description": "Liveness and dependency checks"}
    ],
    "paths": {
        "/timetables/solve": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate and optimize a timetable synchronously",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SolveRequest"}}
                ],
                "responses": {
                    "200": {"description": "Solved or infeasible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed problem", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable-jobs": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Queue a timetable job",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SolveRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{termId}/timetable-jobs": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Queue a timetable job from stored term data",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/TermJobRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No offerings for term", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable-jobs/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Timetable job status and progress",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable-jobs/{id}/assignments": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Assignments of a completed timetable job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Job not completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Job infeasible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable-jobs/{id}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download a completed timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Service health with dependency checks",
                "security": [],
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Degraded"}
                }
            }
        }
    },
    "definitions": {
        "Course": {
            "type": "object",
            "required": ["sectionId", "subjectId", "facultyId", "studentCount", "yearLevel"],
            "properties": {
                "id": {"type": "string"},
                "sectionId": {"type": "string"},
                "sectionName": {"type": "string"},
                "subjectId": {"type": "string"},
                "subjectCode": {"type": "string"},
                "kind": {"type": "string", "enum": ["lecture", "lab"]},
                "periods": {"type": "integer"},
                "facultyId": {"type": "string"},
                "facultyCode": {"type": "string"},
                "studentCount": {"type": "integer"},
                "yearLevel": {"type": "integer"}
            }
        },
        "Room": {
            "type": "object",
            "required": ["id", "capacity"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "capacity": {"type": "integer"},
                "kind": {"type": "string", "enum": ["lecture", "lab"]}
            }
        },
        "AvailabilitySlot": {
            "type": "object",
            "properties": {
                "dayOfWeek": {"type": "integer"},
                "startPeriod": {"type": "integer"},
                "endPeriod": {"type": "integer"}
            }
        },
        "FacultyAvailability": {
            "type": "object",
            "properties": {
                "facultyId": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/AvailabilitySlot"}}
            }
        },
        "Rules": {
            "type": "object",
            "properties": {
                "daysPerWeek": {"type": "integer"},
                "periodsPerDay": {"type": "integer"},
                "labPeriods": {"type": "integer"},
                "minCapacityPercent": {"type": "integer"},
                "maxPeriodsPerSectionPerDay": {"type": "integer"}
            }
        },
        "ExistingAssignment": {
            "type": "object",
            "required": ["sectionId", "facultyId", "roomId", "startPeriod", "endPeriod"],
            "properties": {
                "sectionId": {"type": "string"},
                "subjectId": {"type": "string"},
                "facultyId": {"type": "string"},
                "roomId": {"type": "string"},
                "day": {"type": "integer"},
                "startPeriod": {"type": "integer"},
                "endPeriod": {"type": "integer"}
            }
        },
        "SolveOptions": {
            "type": "object",
            "properties": {
                "seed": {"type": "integer", "format": "int64"},
                "skipOptimization": {"type": "boolean"}
            }
        },
        "SolveRequest": {
            "type": "object",
            "required": ["courses", "rooms"],
            "properties": {
                "courses": {"type": "array", "items": {"$ref": "#/definitions/Course"}},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/Room"}},
                "facultyAvailability": {"type": "array", "items": {"$ref": "#/definitions/FacultyAvailability"}},
                "existingAssignments": {"type": "array", "items": {"$ref": "#/definitions/ExistingAssignment"}},
                "rules": {"$ref": "#/definitions/Rules"},
                "options": {"$ref": "#/definitions/SolveOptions"}
            }
        },
        "TermJobRequest": {
            "type": "object",
            "properties": {
                "options": {"$ref": "#/definitions/SolveOptions"}
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

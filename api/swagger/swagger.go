package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Bellhaven Scheduler API",
        "description": "Course section distribution service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Distribution", "description": "Section distribution, clearing and status"}
    ],
    "paths": {
        "/distribution/status": {
            "get": {
                "tags": ["Distribution"],
                "summary": "Distribution overview for every course",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/distribution/status/export": {
            "get": {
                "tags": ["Distribution"],
                "summary": "Export the distribution overview as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/distribution/courses/{id}/status": {
            "get": {
                "tags": ["Distribution"],
                "summary": "Distribution snapshot of one course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/distribution/courses/{id}/export": {
            "get": {
                "tags": ["Distribution"],
                "summary": "Export one course's section rosters as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/distribution/courses/{id}/distribute": {
            "post": {
                "tags": ["Distribution"],
                "summary": "Distribute registered students of one course across its sections",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Distributed", "schema": {"$ref": "#/definitions/DistributionResult"}},
                    "422": {"description": "Precondition failed (no students, no sections, section without period)"}
                }
            }
        },
        "/distribution/courses/{id}/clear": {
            "post": {
                "tags": ["Distribution"],
                "summary": "Remove all section enrollments of one course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Cleared"},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/distribution/distribute-all": {
            "post": {
                "tags": ["Distribution"],
                "summary": "Clear and redistribute every course, language groups first",
                "responses": {
                    "200": {"description": "Batch result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/distribution/clear-all": {
            "post": {
                "tags": ["Distribution"],
                "summary": "Remove every section enrollment system-wide",
                "responses": {
                    "200": {"description": "Cleared"}
                }
            }
        },
        "/distribution/language-groups": {
            "get": {
                "tags": ["Distribution"],
                "summary": "List configured language groups",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/distribution/language-groups/{id}/distribute": {
            "post": {
                "tags": ["Distribution"],
                "summary": "Run the trimester rotation for one language group",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Distributed", "schema": {"$ref": "#/definitions/DistributionResult"}},
                    "422": {"description": "Group precondition failed"}
                }
            }
        },
        "/distribution/validation/grade-levels/{grade}": {
            "get": {
                "tags": ["Distribution"],
                "summary": "Post-distribution invariant checks for one grade level",
                "parameters": [
                    {"name": "grade", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/distribution/validation/exclusivity": {
            "get": {
                "tags": ["Distribution"],
                "summary": "Students enrolled in multiple courses of an exclusive group",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "DistributionResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "course_id": {"type": "string"},
                "course_name": {"type": "string"},
                "group_id": {"type": "string"},
                "group_name": {"type": "string"},
                "total_students": {"type": "integer"},
                "num_sections": {"type": "integer"},
                "distribution": {"type": "array", "items": {"type": "object"}},
                "unassigned_students": {"type": "array", "items": {"type": "object"}}
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

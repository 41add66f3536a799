// Package docs registers the OpenAPI description served under /swagger.
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
        "/auth/check-phone": {
            "post": {
                "tags": ["auth"],
                "summary": "Check phone number",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.PhoneRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.PhoneStatus"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/auth/send-code": {
            "post": {
                "tags": ["auth"],
                "summary": "Send verification code",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.PhoneRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.messageResponse"}},
                    "403": {"description": "Not registered or inactive", "schema": {"$ref": "#/definitions/services.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/auth/verify-code": {
            "post": {
                "tags": ["auth"],
                "summary": "Verify code and log in",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.VerifyCodeRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.LoginResult"}},
                    "400": {"description": "Wrong, expired or missing code", "schema": {"$ref": "#/definitions/services.ErrorResponse"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}}
            }
        },
        "/auth/sessions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "List active sessions",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Session"}}}}
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.messageResponse"}}}
            }
        },
        "/attendance": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["attendance"],
                "summary": "List attendance",
                "parameters": [
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "string", "name": "meetingType", "in": "query"},
                    {"type": "string", "name": "scope", "in": "query"},
                    {"type": "string", "name": "scopeValue", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.AttendanceRecord"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["attendance"],
                "summary": "Submit attendance",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.AttendanceRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.AttendanceRecord"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/services.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/attendance/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["attendance"],
                "summary": "Get attendance record",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.AttendanceRecord"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["attendance"],
                "summary": "Delete attendance record",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.messageResponse"}}}
            }
        },
        "/travel": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["travel"],
                "summary": "List travel schedules",
                "parameters": [
                    {"type": "boolean", "name": "all", "in": "query"},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.TravelSchedule"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["travel"],
                "summary": "Create travel schedule",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.TravelRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.TravelSchedule"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/travel/overlaps": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["travel"],
                "summary": "Check travel overlaps",
                "parameters": [
                    {"type": "string", "name": "startDate", "in": "query", "required": true},
                    {"type": "string", "name": "endDate", "in": "query", "required": true},
                    {"type": "integer", "name": "excludeId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.TravelSchedule"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/travel/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["travel"],
                "summary": "Update travel schedule",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.TravelRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.TravelSchedule"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["travel"],
                "summary": "Delete travel schedule",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.messageResponse"}}}
            }
        },
        "/gym/time-slots/{date}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["gym"],
                "summary": "Gym time slots",
                "parameters": [{"type": "string", "name": "date", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TimeSlotsResponse"}}}
            }
        },
        "/gym/reservations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["gym"],
                "summary": "List gym reservations",
                "parameters": [
                    {"type": "string", "name": "date", "in": "query"},
                    {"type": "boolean", "name": "includeCancelled", "in": "query"},
                    {"type": "boolean", "name": "history", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.GymReservation"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gym"],
                "summary": "Reserve the gym",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.ReservationRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.GymReservation"}},
                    "409": {"description": "Slot taken or already reserved that day", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/gym/reservations/{id}/check-in": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gym"],
                "summary": "Check in",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.GymReservation"}}}
            }
        },
        "/gym/reservations/{id}/check-out": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gym"],
                "summary": "Check out",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.GymReservation"}}}
            }
        },
        "/gym/reservations/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gym"],
                "summary": "Cancel reservation",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.GymReservation"}}}
            }
        },
        "/gym/reservations/{id}/qr": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["gym"],
                "summary": "Reservation QR code",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ReservationQRResponse"}}}
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "List users",
                "parameters": [
                    {"type": "string", "name": "role", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "district", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.User"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Create user",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateUserRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/models.User"}}}
            }
        },
        "/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Get user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Update user",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateUserRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Delete user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.messageResponse"}}}
            }
        },
        "/crash-logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["crash-logs"],
                "summary": "List crash reports",
                "parameters": [{"type": "integer", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.CrashLog"}}}}
            },
            "post": {
                "tags": ["crash-logs"],
                "summary": "Report a crash",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.CrashLogRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/models.CrashLog"}}}
            }
        }
    },
    "definitions": {
        "handlers.AttendanceRequest": {
            "type": "object",
            "required": ["meetingType", "scope"],
            "properties": {
                "id": {"type": "integer"},
                "date": {"type": "string", "example": "2025-06-01"},
                "meetingType": {"type": "string", "enum": ["table", "homeMeeting", "prayer"]},
                "scope": {"type": "string", "enum": ["full_congregation", "district", "small_group"]},
                "scopeValue": {"type": "string", "example": "North"},
                "adultCount": {"type": "integer", "example": 42},
                "youthChildCount": {"type": "integer", "example": 17},
                "district": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "handlers.CrashLogRequest": {
            "type": "object",
            "required": ["errorMessage"],
            "properties": {
                "deviceInfo": {"type": "string"},
                "appVersion": {"type": "string"},
                "errorMessage": {"type": "string"},
                "stackTrace": {"type": "string"}
            }
        },
        "handlers.CreateUserRequest": {
            "type": "object",
            "required": ["phoneNumber"],
            "properties": {
                "phoneNumber": {"type": "string", "example": "+85291234567"},
                "role": {"type": "string", "example": "member"},
                "district": {"type": "string"},
                "groupNumber": {"type": "string"},
                "englishName": {"type": "string"},
                "chineseName": {"type": "string"}
            }
        },
        "handlers.UpdateUserRequest": {
            "type": "object",
            "properties": {
                "role": {"type": "string"},
                "status": {"type": "string", "enum": ["active", "inactive", "suspended"]},
                "district": {"type": "string"},
                "groupNumber": {"type": "string"},
                "englishName": {"type": "string"},
                "chineseName": {"type": "string"}
            }
        },
        "handlers.PhoneRequest": {
            "type": "object",
            "required": ["phoneNumber"],
            "properties": {"phoneNumber": {"type": "string", "example": "+85291234567"}}
        },
        "handlers.VerifyCodeRequest": {
            "type": "object",
            "required": ["code", "phoneNumber"],
            "properties": {
                "phoneNumber": {"type": "string", "example": "+85291234567"},
                "code": {"type": "string", "example": "123456"},
                "deviceId": {"type": "string"}
            }
        },
        "handlers.ReservationRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2025-06-01"},
                "startTime": {"type": "string", "example": "09:00"},
                "endTime": {"type": "string", "example": "10:00"}
            }
        },
        "handlers.ReservationQRResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "qrCode": {"type": "string", "example": "gym-reservation:42"},
                "qrImage": {"type": "string"}
            }
        },
        "handlers.TimeSlotsResponse": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "hasReservation": {"type": "boolean"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/models.TimeSlot"}}
            }
        },
        "handlers.TravelRequest": {
            "type": "object",
            "properties": {
                "startDate": {"type": "string", "example": "2025-06-01"},
                "endDate": {"type": "string", "example": "2025-06-05"},
                "destination": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "handlers.messageResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "message": {"type": "string"}}
        },
        "models.AttendanceRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "date": {"type": "string"},
                "meetingType": {"type": "string"},
                "scope": {"type": "string"},
                "scopeValue": {"type": "string"},
                "adultCount": {"type": "integer"},
                "youthChildCount": {"type": "integer"},
                "district": {"type": "string"},
                "notes": {"type": "string"},
                "createdBy": {"type": "integer"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.CrashLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "integer"},
                "deviceInfo": {"type": "string"},
                "appVersion": {"type": "string"},
                "errorMessage": {"type": "string"},
                "stackTrace": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "models.GymReservation": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "userId": {"type": "integer"},
                "date": {"type": "string"},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "checked_in", "checked_out", "cancelled"]},
                "checkedInAt": {"type": "string"},
                "checkedOutAt": {"type": "string"},
                "cancelledAt": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.TimeSlot": {
            "type": "object",
            "properties": {
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "available": {"type": "boolean"}
            }
        },
        "models.TravelSchedule": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "userId": {"type": "integer"},
                "startDate": {"type": "string"},
                "endDate": {"type": "string"},
                "destination": {"type": "string"},
                "notes": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.Session": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "userId": {"type": "integer"},
                "deviceId": {"type": "string"},
                "expiresAt": {"type": "string"},
                "revoked": {"type": "boolean"},
                "createdAt": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "phoneNumber": {"type": "string"},
                "role": {"type": "string", "enum": ["super_admin", "admin", "leader", "usher", "member"]},
                "district": {"type": "string"},
                "groupNumber": {"type": "string"},
                "status": {"type": "string", "enum": ["active", "inactive", "suspended"]},
                "englishName": {"type": "string"},
                "chineseName": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "services.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "services.LoginResult": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expiresAt": {"type": "string"},
                "user": {"$ref": "#/definitions/models.User"}
            }
        },
        "services.PhoneStatus": {
            "type": "object",
            "properties": {"registered": {"type": "boolean"}, "active": {"type": "boolean"}}
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
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Church Membership API",
	Description:      "Attendance, gym booking, travel schedules and phone login for church members",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs регистрирует OpenAPI-описание, которое отдаёт /swagger/.
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
        "/tournaments/{tournamentID}/promote-waitlist": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["waitlist"],
                "summary": "Состояние листа ожидания",
                "parameters": [{"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "success и waitlist", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Неавторизован", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Турнир не найден", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["waitlist"],
                "summary": "Продвинуть игрока из листа ожидания",
                "parameters": [{"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Результат продвижения", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Неавторизован", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Нет прав", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Турнир не найден", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Конфликт конкурентных изменений", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Ошибка хранилища", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/slots": {
            "get": {
                "produces": ["application/json"],
                "tags": ["slots"],
                "summary": "Слоты турнира",
                "parameters": [{"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}],
                "responses": {"200": {"description": "Список слотов", "schema": {"type": "object", "additionalProperties": true}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["slots"],
                "summary": "Записаться на турнир",
                "parameters": [{"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}],
                "responses": {"201": {"description": "Созданный слот", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/tournaments/{tournamentID}/slots/me": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["slots"],
                "summary": "Отменить свою регистрацию",
                "parameters": [{"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}],
                "responses": {"200": {"description": "Освобождённый слот", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/tournaments/{tournamentID}/schedule-images": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["tournaments"],
                "summary": "Загрузить изображение расписания",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"type": "file", "description": "Изображение (jpeg, png или webp, до 5MB)", "name": "image", "in": "formData", "required": true}
                ],
                "responses": {"200": {"description": "Турнир", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/slots/{slotID}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["slots"],
                "summary": "Одобрить или отклонить слот",
                "parameters": [
                    {"type": "integer", "description": "Slot ID", "name": "slotID", "in": "path", "required": true},
                    {"description": "Новый статус", "name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"status": {"type": "string", "enum": ["approved", "rejected"]}}}}
                ],
                "responses": {"200": {"description": "Изменение слота", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/slots/{slotID}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["slots"],
                "summary": "Удалить слот",
                "parameters": [{"type": "integer", "description": "Slot ID", "name": "slotID", "in": "path", "required": true}],
                "responses": {"200": {"description": "Освобождённый слот", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Мои уведомления",
                "parameters": [{"type": "integer", "description": "Сколько вернуть", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "Уведомления", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/notifications/{notificationID}/read": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["notifications"],
                "summary": "Отметить уведомление прочитанным",
                "parameters": [{"type": "integer", "description": "Notification ID", "name": "notificationID", "in": "path", "required": true}],
                "responses": {"204": {"description": "Отмечено"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Cricket Slots API",
	Description:      "Слоты турниров по крикету и лист ожидания.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs registers the OpenAPI document served under /swagger/.
// It is maintained by hand alongside the handler annotations; running
// `swag init -g cmd/server/main.go` replaces it with the generated form.
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
        "/": {
            "get": {
                "description": "Published posts released by now in published or no category, newest first, 10 per page",
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Public feed",
                "parameters": [
                    {"type": "integer", "description": "Page number (1-based)", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.PostPage"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/category/{slug}/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Category feed",
                "parameters": [
                    {"type": "string", "description": "Category slug", "name": "slug", "in": "path", "required": true},
                    {"type": "integer", "description": "Page number (1-based)", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.PostPage"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/create/": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Accepts JSON or multipart/form-data; the multipart form may carry an image file",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Create a post",
                "parameters": [
                    {"description": "Post fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.postRequest"}},
                    {"type": "file", "description": "Post image", "name": "image", "in": "formData"}
                ],
                "responses": {
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Post with comments",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.PostDetail"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/edit/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Post edit form",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Post"}},
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Only the author may edit; anyone else is sent back to the post",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Update a post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true},
                    {"description": "Post fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.postRequest"}}
                ],
                "responses": {
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/delete/": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Removes the post with its comments and redirects to the feed",
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Delete a post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/comment/": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Comment on a post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true},
                    {"description": "Comment text", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.commentRequest"}}
                ],
                "responses": {
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/edit_comment/{cid}/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Comment edit form",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Comment ID", "name": "cid", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Comment"}},
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Update a comment",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Comment ID", "name": "cid", "in": "path", "required": true},
                    {"description": "Comment text", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.commentRequest"}}
                ],
                "responses": {
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/delete_comment/{cid}/": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Delete a comment",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Comment ID", "name": "cid", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/profile/{username}/": {
            "get": {
                "description": "The owner sees all of their posts; everyone else sees only public ones",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "User profile",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true},
                    {"type": "integer", "description": "Page number (1-based)", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Profile"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/edit_profile/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Profile edit form",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ProfileForm"}},
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update own profile",
                "parameters": [
                    {"description": "Account fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.ProfileForm"}}
                ],
                "responses": {
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/registration/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Registration form",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.registrationRequest"}}
                }
            },
            "post": {
                "description": "Registers the user and sends them to the login page",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Create an account",
                "parameters": [
                    {"description": "Account fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.registrationRequest"}}
                ],
                "responses": {
                    "302": {"description": "Found", "schema": {"$ref": "#/definitions/models.RedirectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/login/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login form",
                "parameters": [
                    {"type": "string", "description": "Local path to return to", "name": "next", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "properties": {"next": {"type": "string"}}}}
                }
            },
            "post": {
                "description": "Returns a bearer token and sets it as an HTTP-only cookie",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/logout/": {
            "post": {
                "description": "Revokes the current token and clears the auth cookie",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log out",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "properties": {"message": {"type": "string"}}}}
                }
            }
        },
        "/pages/about/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "About page",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.StaticPage"}}
                }
            }
        },
        "/pages/rules/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Site rules",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.StaticPage"}}
                }
            }
        }
    },
    "definitions": {
        "models.Category": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "description": {"type": "string"},
                "id": {"type": "integer"},
                "is_published": {"type": "boolean"},
                "slug": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "models.Comment": {
            "type": "object",
            "properties": {
                "author": {"$ref": "#/definitions/models.User"},
                "author_id": {"type": "integer"},
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "post_id": {"type": "integer"},
                "text": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "string"},
                "error": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "models.Location": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "is_published": {"type": "boolean"},
                "name": {"type": "string"}
            }
        },
        "models.Post": {
            "type": "object",
            "properties": {
                "author": {"$ref": "#/definitions/models.User"},
                "author_id": {"type": "integer"},
                "category": {"$ref": "#/definitions/models.Category"},
                "category_id": {"type": "integer"},
                "comment_count": {"type": "integer"},
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "image": {"type": "string"},
                "is_published": {"type": "boolean"},
                "location": {"$ref": "#/definitions/models.Location"},
                "location_id": {"type": "integer"},
                "pub_date": {"type": "string"},
                "text": {"type": "string"},
                "title": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.RedirectResponse": {
            "type": "object",
            "properties": {
                "redirect": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "first_name": {"type": "string"},
                "id": {"type": "integer"},
                "last_name": {"type": "string"},
                "updated_at": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "server.LoginResponse": {
            "type": "object",
            "properties": {
                "expires_at": {"type": "string"},
                "next": {"type": "string"},
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/models.User"}
            }
        },
        "server.StaticPage": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "server.commentRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string"}
            }
        },
        "server.loginRequest": {
            "type": "object",
            "properties": {
                "next": {"type": "string"},
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "server.postRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "integer"},
                "is_published": {"type": "boolean"},
                "location": {"type": "integer"},
                "pub_date": {"type": "string"},
                "text": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "server.registrationRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "service.PostDetail": {
            "type": "object",
            "properties": {
                "can_comment": {"type": "boolean"},
                "can_modify": {"type": "boolean"},
                "comments": {"type": "array", "items": {"$ref": "#/definitions/models.Comment"}},
                "post": {"$ref": "#/definitions/models.Post"}
            }
        },
        "service.PostPage": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "has_previous": {"type": "boolean"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}},
                "num_pages": {"type": "integer"},
                "page": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "service.Profile": {
            "type": "object",
            "properties": {
                "is_owner": {"type": "boolean"},
                "posts": {"$ref": "#/definitions/service.PostPage"},
                "user": {"$ref": "#/definitions/models.User"}
            }
        },
        "service.ProfileForm": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Blogicum API",
	Description:      "Personal blogs with scheduled posts, categories and comments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

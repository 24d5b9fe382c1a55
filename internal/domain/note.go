package domain

import (
	"encoding/json"
	"strings"
	"time"
)

const DefaultTag = "General"

type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tag       string    `json:"tag"`
	IsPinned  bool      `json:"is_pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateNoteRequest struct {
	Title    string `json:"title" validate:"max=200"`
	Content  string `json:"content" validate:"required"`
	Tag      string `json:"tag" validate:"max=50"`
	IsPinned bool   `json:"is_pinned"`
}

func (r *CreateNoteRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if err := rejectNUL(textField{"title", r.Title}, textField{"content", r.Content}, textField{"tag", r.Tag}); err != nil {
		return err
	}
	if isBlank(r.Content) {
		return emptyContentError()
	}
	return nil
}

// NewNote builds a note owned by userID, applying field defaults.
func NewNote(id, userID string, req *CreateNoteRequest, now time.Time) (*Note, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &Note{
		ID:        id,
		UserID:    userID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Tag:       normalizeTag(req.Tag),
		IsPinned:  req.IsPinned,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// FieldUpdate is the list form of a partial update: {"field": "title", "value": "x"}.
type FieldUpdate struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// UpdateNoteRequest carries only the fields the caller wants changed. Nil
// pointers keep their stored value.
type UpdateNoteRequest struct {
	Title    *string       `json:"title,omitempty" validate:"omitempty,max=200"`
	Content  *string       `json:"content,omitempty"`
	Tag      *string       `json:"tag,omitempty" validate:"omitempty,max=50"`
	IsPinned *bool         `json:"is_pinned,omitempty"`
	Fields   []FieldUpdate `json:"fields,omitempty"`
}

// Normalize folds the list form into the pointer fields.
func (r *UpdateNoteRequest) Normalize() error {
	for _, f := range r.Fields {
		switch f.Field {
		case "title":
			v, err := stringValue(f)
			if err != nil {
				return err
			}
			r.Title = &v
		case "content":
			v, err := stringValue(f)
			if err != nil {
				return err
			}
			r.Content = &v
		case "tag":
			v, err := stringValue(f)
			if err != nil {
				return err
			}
			r.Tag = &v
		case "is_pinned":
			var v bool
			if err := json.Unmarshal(f.Value, &v); err != nil {
				return NewValidationError("invalid field value", FieldError{Field: f.Field, Message: "must be a boolean"})
			}
			r.IsPinned = &v
		default:
			return NewValidationError("invalid field", FieldError{Field: f.Field, Message: "cannot be updated"})
		}
	}
	r.Fields = nil
	return nil
}

func (r *UpdateNoteRequest) Validate() error {
	if err := r.Normalize(); err != nil {
		return err
	}
	if err := validateStruct(r); err != nil {
		return err
	}
	if err := rejectNUL(r.textFields()...); err != nil {
		return err
	}
	if r.Content != nil && isBlank(*r.Content) {
		return emptyContentError()
	}
	return nil
}

func (r *UpdateNoteRequest) textFields() []textField {
	var fields []textField
	if r.Title != nil {
		fields = append(fields, textField{"title", *r.Title})
	}
	if r.Content != nil {
		fields = append(fields, textField{"content", *r.Content})
	}
	if r.Tag != nil {
		fields = append(fields, textField{"tag", *r.Tag})
	}
	return fields
}

// Apply merges the request into n and refreshes UpdatedAt. n is left untouched
// when the request is invalid.
func (n *Note) Apply(req *UpdateNoteRequest, now time.Time) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Title != nil {
		n.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		n.Content = *req.Content
	}
	if req.Tag != nil {
		n.Tag = normalizeTag(*req.Tag)
	}
	if req.IsPinned != nil {
		n.IsPinned = *req.IsPinned
	}

	n.UpdatedAt = now
	return nil
}

func stringValue(f FieldUpdate) (string, error) {
	var v string
	if err := json.Unmarshal(f.Value, &v); err != nil {
		return "", NewValidationError("invalid field value", FieldError{Field: f.Field, Message: "must be a string"})
	}
	return v, nil
}

func normalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return DefaultTag
	}
	return tag
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func emptyContentError() *Error {
	return NewValidationError(
		"note content must not be empty",
		FieldError{Field: "content", Message: "is required"},
	)
}

package validator

// ProjectCreateRequest represents the request payload for creating a project
type ProjectCreateRequest struct {
	Key         string `json:"key" validate:"required,resource_key,min=2,max=100"`
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// ProjectUpdateRequest represents the request payload for updating a project
type ProjectUpdateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// ProjectMemberRequest represents the request payload for adding a member
type ProjectMemberRequest struct {
	UserID string `json:"user_id" validate:"required,min=1,max=100"`
}

// ValidateProjectCreateRequest validates a project creation request
func ValidateProjectCreateRequest(req ProjectCreateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateProjectUpdateRequest validates a project update request
func ValidateProjectUpdateRequest(req ProjectUpdateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateProjectMemberRequest validates a member addition request
func ValidateProjectMemberRequest(req ProjectMemberRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

package validator

// EnvironmentCreateRequest represents the request payload for creating an environment
type EnvironmentCreateRequest struct {
	Key  string `json:"key" validate:"required,resource_key,min=2,max=100"`
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// EnvironmentUpdateRequest represents the request payload for renaming an environment
type EnvironmentUpdateRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// ValidateEnvironmentCreateRequest validates an environment creation request
func ValidateEnvironmentCreateRequest(req EnvironmentCreateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateEnvironmentUpdateRequest validates an environment update request
func ValidateEnvironmentUpdateRequest(req EnvironmentUpdateRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

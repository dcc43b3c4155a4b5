package session

import (
	"github.com/go-playground/validator/v10"

	"clrdebug/internal/model"
)

var validate = validator.New()

// AttachRequest is the validated input to Manager.Attach.
type AttachRequest struct {
	PID       int `validate:"required,gt=0"`
	TimeoutMs int `validate:"required,gte=1000,lte=300000"`
}

// LaunchRequest is the validated input to Manager.Launch.
type LaunchRequest struct {
	Program     string `validate:"required"`
	Argv        []string
	Cwd         string
	Env         map[string]string
	StopAtEntry bool
	TimeoutMs   int `validate:"required,gte=1000,lte=300000"`
}

func translateValidation(err error) *model.Error {
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		fe := ve[0]
		return model.NewErrorf(model.ErrInvalidParameter, "%s failed %s validation", fe.Field(), fe.Tag()).
			WithDetail("field", fe.Field()).WithDetail("tag", fe.Tag())
	}
	return model.Wrap(model.ErrInvalidParameter, err, "invalid request")
}

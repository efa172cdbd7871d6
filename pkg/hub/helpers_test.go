package hub

import (
	"errors"

	apperrors "github.com/DeBrosOfficial/loghub/pkg/errors"
)

func asValidation(err error, target **apperrors.ValidationError) bool {
	return errors.As(err, target)
}

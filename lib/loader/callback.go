package loader

import (
	"strings"

	"github.com/google/uuid"
)

// callbackPrefix namespaces the one-shot load callbacks the loader
// registers on the global object.
const callbackPrefix = "__googleMapsCallback_"

// callbackName returns a globally unique callback identifier for one load
// attempt.
func callbackName() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	s := id.String()
	s = strings.Replace(s, "-", "", -1)
	return callbackPrefix + s, nil
}

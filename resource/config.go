package resource

import (
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/teleop/utils"
)

// AttributeMap is the untyped per-model configuration as read from a config file.
type AttributeMap map[string]interface{}

// A Config describes the configuration of a single collaborator.
type Config struct {
	Name       string       `json:"name" yaml:"name"`
	Model      Model        `json:"model" yaml:"model"`
	Attributes AttributeMap `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	ConvertedAttributes ConfigValidator `json:"-" yaml:"-"`
}

// A ConfigValidator validates a model's native configuration. `path` locates the config in
// error messages.
type ConfigValidator interface {
	Validate(path string) error
}

// NoNativeConfig is used by models that take no attributes.
type NoNativeConfig struct{}

// Validate always succeeds.
func (NoNativeConfig) Validate(path string) error {
	return nil
}

var noNativeConfigType = reflect.TypeOf(NoNativeConfig{})

// NativeConfig returns the native config from the given config via its converted attributes.
func NativeConfig[T any](conf Config) (T, error) {
	typed, ok := conf.ConvertedAttributes.(T)
	if !ok {
		var zero T
		return zero, utils.NewUnexpectedTypeError(zero, conf.ConvertedAttributes)
	}
	return typed, nil
}

// Validate checks the generic fields of the config and the converted attributes, if any.
func (conf *Config) Validate(path string) error {
	if conf.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if conf.Model == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "model")
	}
	if conf.ConvertedAttributes != nil {
		if err := conf.ConvertedAttributes.Validate(path + ".attributes"); err != nil {
			return err
		}
	}
	return nil
}

// TransformAttributeMap decodes an attribute map into the model's native config type using its
// json tags. Unknown attributes are an error so that typos do not pass silently.
func TransformAttributeMap[T any](attributes AttributeMap) (T, error) {
	var out T

	var forResult interface{}

	toT := reflect.TypeOf(out)
	if toT == nil {
		return out, nil
	}
	if toT.Kind() == reflect.Ptr {
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           forResult,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, errors.Wrap(err, "decoding attributes")
	}
	return out, nil
}

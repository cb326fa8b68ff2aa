package resource

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/utils"
)

type (
	// An APIModel is the tuple that identifies a model implementing an API.
	APIModel struct {
		API   API
		Model Model
	}

	// A Create creates a resource from its config.
	Create[ResourceT Resource] func(ctx context.Context, conf Config, logger logging.Logger) (ResourceT, error)

	// An AttributeMapConverter converts an attribute map into a native config type for a resource.
	AttributeMapConverter[ConfigT any] func(attributes AttributeMap) (ConfigT, error)
)

// A Registration stores construction info for a model. A constructor is mandatory.
type Registration[ResourceT Resource, ConfigT any] struct {
	Constructor Create[ResourceT]

	// AttributeMapConverter is used to convert raw attributes to the model's native config. When
	// unset, TransformAttributeMap is used.
	AttributeMapConverter AttributeMapConverter[ConfigT]
}

var (
	registryMu sync.RWMutex
	registry   = map[APIModel]Registration[Resource, ConfigValidator]{}
)

// Register registers a model for an API with its construction info. Registering the same pair
// twice panics.
func Register[ResourceT Resource, ConfigT ConfigValidator](api API, model Model, reg Registration[ResourceT, ConfigT]) {
	registryMu.Lock()
	defer registryMu.Unlock()

	apiModel := APIModel{api, model}
	if _, old := registry[apiModel]; old {
		panic(errors.Errorf("trying to register two resources with same api: %q, model: %q", api, model))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for api: %q, model: %q", api, model))
	}
	var zero ConfigT
	if reg.AttributeMapConverter == nil {
		if zeroT := reflect.TypeOf(zero); zeroT != nil && zeroT != noNativeConfigType {
			reg.AttributeMapConverter = TransformAttributeMap[ConfigT]
		}
	}
	registry[apiModel] = makeGenericResourceRegistration(reg)
}

// makeGenericResourceRegistration erases the type parameters so that registrations of every API
// share one map.
func makeGenericResourceRegistration[ResourceT Resource, ConfigT ConfigValidator](
	typed Registration[ResourceT, ConfigT],
) Registration[Resource, ConfigValidator] {
	reg := Registration[Resource, ConfigValidator]{
		Constructor: func(ctx context.Context, conf Config, logger logging.Logger) (Resource, error) {
			return typed.Constructor(ctx, conf, logger)
		},
	}
	if typed.AttributeMapConverter != nil {
		reg.AttributeMapConverter = func(attributes AttributeMap) (ConfigValidator, error) {
			return typed.AttributeMapConverter(attributes)
		}
	}
	return reg
}

// Deregister removes a previously registered model.
func Deregister(api API, model Model) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, APIModel{api, model})
}

// LookupRegistration looks up the registration for the given api and model.
func LookupRegistration(api API, model Model) (Registration[Resource, ConfigValidator], bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	registration, ok := registry[APIModel{api, model}]
	return registration, ok
}

// RegisteredModels lists the models registered for `api`, sorted.
func RegisteredModels(api API) []Model {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var models []Model
	for apiModel := range registry {
		if apiModel.API == api {
			models = append(models, apiModel.Model)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	return models
}

// ConvertAttributes fills in conf.ConvertedAttributes from conf.Attributes using the model's
// registration and validates the result.
func ConvertAttributes(api API, conf *Config, path string) error {
	reg, ok := LookupRegistration(api, conf.Model)
	if !ok {
		return errors.Errorf("%s: unknown %s model %q (known: %v)", path, api, conf.Model, RegisteredModels(api))
	}
	if reg.AttributeMapConverter != nil && conf.ConvertedAttributes == nil {
		converted, err := reg.AttributeMapConverter(conf.Attributes)
		if err != nil {
			return errors.Wrapf(err, "%s.attributes", path)
		}
		conf.ConvertedAttributes = converted
	}
	return conf.Validate(path)
}

// Build converts, validates and constructs the resource described by `conf`, asserting that it
// implements T.
func Build[T Resource](ctx context.Context, api API, conf Config, logger logging.Logger) (T, error) {
	var zero T
	if err := ConvertAttributes(api, &conf, string(api)+"."+conf.Name); err != nil {
		return zero, err
	}
	reg, _ := LookupRegistration(api, conf.Model)
	res, err := reg.Constructor(ctx, conf, logger.Sublogger(conf.Name))
	if err != nil {
		return zero, errors.Wrapf(err, "building %s %q", api, conf.Name)
	}
	typed, ok := res.(T)
	if !ok {
		return zero, multierr.Combine(
			utils.CollaboratorTypeError(conf.Name, (*T)(nil), res),
			res.Close(ctx),
		)
	}
	return typed, nil
}

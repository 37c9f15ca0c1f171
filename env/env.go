package env

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/spf13/viper"
)

var validators = map[string][]string{}

var v = validator.New()

var validatorsMu = &sync.Mutex{}

// RegisterValidation attaches validation tags to an env var. Packages register
// their required vars in init so misconfiguration is reported on first read.
func RegisterValidation(name string, tags ...string) {
	validatorsMu.Lock()
	defer validatorsMu.Unlock()
	validators[name] = dedupe(append(validators[name], tags...))
}

func Get[T any](ctx context.Context, name string) T {
	it, _ := GetIfExists[T](ctx, name)
	return it
}

func GetIfExists[T any](ctx context.Context, name string) (T, bool) {
	func() {
		validatorsMu.Lock()
		defer validatorsMu.Unlock()
		for _, tag := range validators[name] {
			if err := v.Var(viper.GetString(name), tag); err != nil {
				logger.For(ctx).Errorf("invalid env var: %s, tag: %s, err: %s", name, tag, err.Error())
			}
		}
	}()

	if !viper.IsSet(name) {
		return *new(T), false
	}

	it, ok := viper.Get(name).(T)
	if !ok {
		logger.For(ctx).Errorf("invalid env var: %s, expected type: %T", name, it)
		return *new(T), false
	}

	return it, true
}

func GetString(ctx context.Context, name string) string {
	return Get[string](ctx, name)
}

func GetBool(ctx context.Context, name string) bool {
	return viper.GetBool(name)
}

func GetInt(ctx context.Context, name string) int {
	return viper.GetInt(name)
}

func dedupe(src []string) []string {
	result := src[:0]

	seen := make(map[string]bool)
	for _, x := range src {
		if !seen[x] {
			result = append(result, x)
			seen[x] = true
		}
	}
	return result
}

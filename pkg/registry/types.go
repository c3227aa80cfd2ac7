package registry

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/lifepool/pkg/cache"
	"github.com/ajitpratap0/lifepool/pkg/pool"
)

// Category selects which store of the registry a key addresses.
type Category int

const (
	// CategoryItem addresses pools of visible items such as scene objects.
	CategoryItem Category = iota
	// CategoryValue addresses pools of plain values such as buffers or components.
	CategoryValue
	// CategoryResource addresses the single-instance resource cache.
	CategoryResource
)

func (c Category) String() string {
	switch c {
	case CategoryItem:
		return "item"
	case CategoryValue:
		return "value"
	case CategoryResource:
		return "resource"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory maps a category name back to its value.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "item":
		return CategoryItem, true
	case "value":
		return CategoryValue, true
	case "resource":
		return CategoryResource, true
	}
	return 0, false
}

// Key addresses one pool or cached resource.
type Key struct {
	Name     string
	Category Category
}

// ItemKey is shorthand for a Key in CategoryItem.
func ItemKey(name string) Key { return Key{Name: name, Category: CategoryItem} }

// ValueKey is shorthand for a Key in CategoryValue.
func ValueKey(name string) Key { return Key{Name: name, Category: CategoryValue} }

// ResourceKey is shorthand for a Key in CategoryResource.
func ResourceKey(name string) Key { return Key{Name: name, Category: CategoryResource} }

func (k Key) String() string { return k.Category.String() + "/" + k.Name }

// ItemFactory fabricates a new item when a pool has nothing to hand out.
type ItemFactory[T any] interface {
	Instantiate(ctx context.Context, name string) (T, error)
}

// FactoryFunc adapts a function to ItemFactory.
type FactoryFunc[T any] func(ctx context.Context, name string) (T, error)

// Instantiate calls f(ctx, name).
func (f FactoryFunc[T]) Instantiate(ctx context.Context, name string) (T, error) {
	return f(ctx, name)
}

// TemplateFactory fabricates items by loading a template of the same name
// through a resource cache and cloning it.
func TemplateFactory[T any, R any](templates *cache.Cache[R], clone func(template R) (T, error)) ItemFactory[T] {
	return FactoryFunc[T](func(ctx context.Context, name string) (T, error) {
		tpl, err := templates.Load(ctx, name)
		if err != nil {
			var zero T
			return zero, err
		}
		return clone(tpl)
	})
}

// Collaborators are the pluggable pieces a Registry delegates to. Any of
// them may be nil: missing factories make Load fail on an empty pool, a
// missing executor makes teardown a no-op, and a missing provider disables
// the resource category.
type Collaborators[T comparable, R any] struct {
	ItemFactory      ItemFactory[T]
	ValueFactory     ItemFactory[T]
	ItemExecutor     pool.DestroyExecutor[T]
	ValueExecutor    pool.DestroyExecutor[T]
	ResourceProvider cache.ResourceProvider[R]
}

package pool

// DestroyExecutor tears an item down. The engine calls it at most once per
// destroy request and never for an item that was rescued.
type DestroyExecutor[T any] interface {
	Destroy(item T)
}

// DestroyFunc adapts a function to DestroyExecutor.
type DestroyFunc[T any] func(item T)

// Destroy calls f(item).
func (f DestroyFunc[T]) Destroy(item T) { f(item) }

// Executors chains executors; Destroy runs each in order.
type Executors[T any] []DestroyExecutor[T]

// Destroy runs every executor in slice order.
func (es Executors[T]) Destroy(item T) {
	for _, e := range es {
		if e != nil {
			e.Destroy(item)
		}
	}
}

type noopExecutor[T any] struct{}

func (noopExecutor[T]) Destroy(T) {}

package realm

// Collection binds a coordinator to one entity type so call sites need not
// repeat the type parameter. It adds no behavior of its own.
type Collection[T any] struct {
	c *Coordinator
}

// For returns the collection of T on c.
func For[T any](c *Coordinator) Collection[T] {
	return Collection[T]{c: c}
}

func (col Collection[T]) Add(obj *T, policy ConflictPolicy) (*Ref[T], error) {
	return Add(col.c, obj, policy)
}

func (col Collection[T]) AddBatch(objs []*T, policy ConflictPolicy) error {
	return AddBatch(col.c, objs, policy)
}

func (col Collection[T]) Upsert(obj *T, pred Predicate[T], gate MergeGate[T], policy CollisionPolicy) (UpsertOutcome, error) {
	return Upsert(col.c, obj, pred, gate, policy)
}

func (col Collection[T]) UpsertByKey(obj *T, gate MergeGate[T]) (UpsertOutcome, error) {
	return UpsertByKey(col.c, obj, gate)
}

func (col Collection[T]) Write(h Handle[T], mutate Mutator[T]) error {
	return Write(col.c, h, mutate)
}

func (col Collection[T]) WriteWhere(pred Predicate[T], mutate Mutator[T]) (int, error) {
	return WriteWhere(col.c, pred, mutate)
}

func (col Collection[T]) WriteBatch(hs []Handle[T], mutate Mutator[T]) error {
	return WriteBatch(col.c, hs, mutate)
}

func (col Collection[T]) Delete(h Handle[T]) error {
	return Delete(col.c, h)
}

func (col Collection[T]) DeleteWhere(pred Predicate[T]) (int, error) {
	return DeleteWhere(col.c, pred)
}

func (col Collection[T]) DeleteBatch(hs []Handle[T]) (int, error) {
	return DeleteBatch(col.c, hs)
}

func (col Collection[T]) DeleteAll() (int, error) {
	return DeleteAll[T](col.c)
}

// Find looks up a record by primary key on s.
func (col Collection[T]) Find(s *Session, key any) (Handle[T], bool, error) {
	return Find[T](s, key)
}

// Query lists matching records on s.
func (col Collection[T]) Query(s *Session, pred Predicate[T]) ([]Handle[T], error) {
	return Query(s, pred)
}

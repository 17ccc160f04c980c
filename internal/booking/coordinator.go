package booking

// FetchToken tags an in-flight dependent query with the selection it was
// issued for. Tokens are handed to the fetch goroutine and come back with its
// result; the coordinator never stores them.
type FetchToken struct {
	Kind       FetchKind
	Key        FetchKey
	Generation uint64
}

// Coordinator decides which dependent query results may be applied.
//
// Each kind has a generation counter. Issuing a query, or any selection change
// that moves the kind's key, bumps the counter, so at most the latest query
// of a kind can ever be applied, and only while its key still matches the
// selection. A generation is applied at most once.
//
// Coordinator is not safe for concurrent use; Session guards it.
type Coordinator struct {
	issued   [fetchKinds]uint64
	applied  [fetchKinds]uint64
	inFlight [fetchKinds]bool
}

// Issue supersedes any in-flight query of the same kind and returns the
// token for the new one.
func (c *Coordinator) Issue(req FetchRequest) FetchToken {
	c.issued[req.Kind]++
	c.inFlight[req.Kind] = true
	return FetchToken{Kind: req.Kind, Key: req.Key, Generation: c.issued[req.Kind]}
}

// Supersede invalidates whatever query of kind is in flight without issuing
// a new one.
func (c *Coordinator) Supersede(kind FetchKind) {
	c.issued[kind]++
	c.inFlight[kind] = false
}

// Accept reports whether a result carrying tok may be written into the
// selection whose current key for tok.Kind is current. Accepting marks the
// generation applied, so duplicate deliveries are refused.
func (c *Coordinator) Accept(tok FetchToken, current FetchKey) bool {
	latest := tok.Generation == c.issued[tok.Kind]
	if latest {
		c.inFlight[tok.Kind] = false
	}
	if !latest || tok.Key != current || c.applied[tok.Kind] == tok.Generation {
		return false
	}
	c.applied[tok.Kind] = tok.Generation
	return true
}

// Pending reports whether the latest query of kind has not settled yet.
func (c *Coordinator) Pending(kind FetchKind) bool {
	return c.inFlight[kind]
}

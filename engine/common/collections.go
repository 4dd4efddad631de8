package common

// StringSet is a set of strings
type StringSet map[string]struct{}

// Contains checks if the set contains the specified string
func (ss StringSet) Contains(elem string) bool {
	_, ok := ss[elem]
	return ok
}

// Add adds the string to the set
func (ss StringSet) Add(elem string) {
	ss[elem] = struct{}{}
}

// Remove removes the string from the set
func (ss StringSet) Remove(elem string) {
	delete(ss, elem)
}

// ToList converts the set to a string slice
func (ss StringSet) ToList() []string {
	keys := make([]string, 0, len(ss))
	for s := range ss {
		keys = append(keys, s)
	}
	return keys
}

// ClientIDSet is a set of client ids
type ClientIDSet map[ClientID]struct{}

// Contains checks if the set contains the specified client id
func (cs ClientIDSet) Contains(id ClientID) bool {
	_, ok := cs[id]
	return ok
}

// Add adds the client id to the set
func (cs ClientIDSet) Add(id ClientID) {
	cs[id] = struct{}{}
}

// Remove removes the client id from the set
func (cs ClientIDSet) Remove(id ClientID) {
	delete(cs, id)
}

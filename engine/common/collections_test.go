package common

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestStringSet(t *testing.T) {
	ss := StringSet{}
	ss.Add("1")
	ss.Add("2")
	assert.T(t, ss.Contains("1"), "should contain")
	assert.T(t, ss.Contains("2"), "should contain")
	ss.Remove("2")
	assert.T(t, !ss.Contains("2"), "should not contain")
	assert.Tf(t, len(ss.ToList()) == 1, "wrong length: %v", ss.ToList())
}

func TestClientIDSet(t *testing.T) {
	cs := ClientIDSet{}
	id := GenClientID()
	cs.Add(id)
	assert.T(t, cs.Contains(id), "should contain")
	cs.Remove(id)
	assert.T(t, !cs.Contains(id), "should not contain")
	assert.Tf(t, len(cs) == 0, "wrong length: %d", len(cs))
}

package common

// ClientID is the unique id of one live client connection
type ClientID string

// GenClientID generates a new ClientID
func GenClientID() ClientID {
	return ClientID(genUUID())
}

// IsNil returns if the ClientID is unset
func (id ClientID) IsNil() bool {
	return id == ""
}

// CLIENTID_LENGTH is the length of client ids
const CLIENTID_LENGTH = _UUID_LENGTH

// Package addressbook holds the list of nodes a client can talk to.
//
// The address book is published by the network itself, encoded with the wire
// codec (FromBytes/ToBytes). Clients keep a JSON copy on disk so that they can
// start without asking the network first (JSONAddressBook).
package addressbook

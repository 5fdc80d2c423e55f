// Package backend holds helpers shared by the backend writers: an ordered
// INI builder for systemd units and NetworkManager keyfiles, template
// rendering, and systemd name escaping.
//
// The writers themselves live in the networkd, nm and ovs subpackages and
// implement generate.Writer.
package backend

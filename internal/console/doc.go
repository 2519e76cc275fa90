// Package console implements the line-oriented control surface for the
// retools engine.
//
// Commands follow the layout of the on-vehicle "re" command tree; the leading
// "re" token is optional:
//
//	start                 start collecting statistics
//	stop                  stop and discard statistics
//	clear                 reset statistics and the session clock
//	list [filter]         list keys containing filter
//	key set <id> <pos>... extend the key of <id> with payload bytes (1-8)
//	key clear <id>        remove the key extension for <id>
//	key list              show configured key extensions
//	key save              write key extensions to the config file
//	help                  show this list
//
// Identifiers are hexadecimal and byte positions decimal. Both are parsed
// permissively: parsing stops at the first invalid character and an
// unparseable argument reads as zero.
package console

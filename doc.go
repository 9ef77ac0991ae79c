// Package ext2 simulates a simplified ext2-style filesystem inside a single
// host file. It implements the on-disk engine only: the block device
// abstraction, bitmap-backed block/inode allocators, the inode layer with
// direct and single-indirect data pointers, the directory layer, and the
// permission/user model. The interactive shell, argument parsing, and REPL
// loop that drive this engine are expected to live outside this package.
package ext2

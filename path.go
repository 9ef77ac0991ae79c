package ext2

import "strings"

// splitPath breaks path into its "/"-separated components, dropping empty
// ones so that "/a//b/" and "a/b" both become ["a", "b"].
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// startInode returns the inode resolution should begin from: the root for
// an absolute path, the current working directory otherwise.
func (fsys *FileSystem) startInode(path string) uint32 {
	if strings.HasPrefix(path, "/") {
		return RootInodeNumber
	}
	return fsys.cwd
}

// PathToInode resolves path (absolute or relative to the current working
// directory) to an inode. "." and ".." are ordinary directory entries
// written by Format/CreateDirectory, so no special-casing is needed here
// beyond walking components in order.
func (fsys *FileSystem) PathToInode(path string) (Inode, error) {
	current := fsys.startInode(path)
	parts := splitPath(path)

	inode, err := fsys.ReadInode(current)
	if err != nil {
		return Inode{}, err
	}

	for _, name := range parts {
		if !inode.IsDir() {
			return Inode{}, NewDriverError(ErrnoNotDirectory)
		}
		entry, err := fsys.Lookup(&inode, name)
		if err != nil {
			return Inode{}, err
		}
		inode, err = fsys.ReadInode(entry.Inode)
		if err != nil {
			return Inode{}, err
		}
	}
	return inode, nil
}

// GetParentInode splits path into its parent directory's inode and the
// final path component, the shape every creating/removing operation needs:
// resolve the parent, then add or remove a single entry named base.
func (fsys *FileSystem) GetParentInode(path string) (parent Inode, base string, err error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return Inode{}, "", NewDriverErrorWithMessage(ErrnoBadPath, "path has no final component")
	}
	base = parts[len(parts)-1]

	parentInode := fsys.startInode(path)
	current, err := fsys.ReadInode(parentInode)
	if err != nil {
		return Inode{}, "", err
	}
	for _, name := range parts[:len(parts)-1] {
		if !current.IsDir() {
			return Inode{}, "", NewDriverError(ErrnoNotDirectory)
		}
		entry, err := fsys.Lookup(&current, name)
		if err != nil {
			return Inode{}, "", err
		}
		current, err = fsys.ReadInode(entry.Inode)
		if err != nil {
			return Inode{}, "", err
		}
	}
	return current, base, nil
}

// ChangeDirectory resolves path and, if it names a directory, makes it the
// current working directory.
func (fsys *FileSystem) ChangeDirectory(path string) error {
	inode, err := fsys.PathToInode(path)
	if err != nil {
		return err
	}
	if !inode.IsDir() {
		return NewDriverError(ErrnoNotDirectory)
	}
	fsys.cwd = inode.Number
	return nil
}

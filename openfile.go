package ext2

// FileHandle identifies one entry in the session's open-file table. It's
// opaque to callers beyond being passed back into ReadFile/WriteFile/
// CloseFile/Seek.
type FileHandle uint64

func (fsys *FileSystem) requireLogin() error {
	if !fsys.who.loggedIn {
		return ErrNotLoggedIn
	}
	return nil
}

func (fsys *FileSystem) slotFor(handle FileHandle) (int, error) {
	for i := range fsys.openFiles {
		if fsys.openFiles[i].inUse && fsys.openFiles[i].handleID == uint64(handle) {
			return i, nil
		}
	}
	return -1, NewDriverError(ErrnoBadDescriptor)
}

// OpenFile resolves path to a regular file and reserves a slot in the
// session's open-file table for access, rejecting the request if the
// caller's permission bits don't cover what access demands or every slot
// is already taken.
func (fsys *FileSystem) OpenFile(path string, access AccessMode) (FileHandle, error) {
	if err := fsys.requireLogin(); err != nil {
		return 0, err
	}

	inode, err := fsys.PathToInode(path)
	if err != nil {
		return 0, err
	}
	if inode.IsDir() {
		return 0, NewDriverError(ErrnoIsDirectory)
	}
	if !fsys.CheckPermission(&inode, access.RequiredPermBits()) {
		return 0, NewDriverError(ErrnoPermissionDenied)
	}

	slot := -1
	for i := range fsys.openFiles {
		if !fsys.openFiles[i].inUse {
			slot = i
			break
		}
	}
	if slot == -1 {
		return 0, NewDriverError(ErrnoTooManyOpenFiles)
	}

	fsys.nextHandle++
	handle := fsys.nextHandle
	fsys.openFiles[slot] = openFileSlot{
		inUse:    true,
		handleID: handle,
		inode:    inode.Number,
		offset:   0,
		access:   access,
	}
	return FileHandle(handle), nil
}

// CloseFile releases the open-file slot backing handle.
func (fsys *FileSystem) CloseFile(handle FileHandle) error {
	slot, err := fsys.slotFor(handle)
	if err != nil {
		return err
	}
	fsys.openFiles[slot] = openFileSlot{}
	return nil
}

// ReadFile reads up to len(buf) bytes from handle's current offset and
// advances it by the number of bytes actually read. A handle whose inode
// was deleted out from under it (links_count dropped to zero) is dangling
// by design -- see the design notes -- and reads from it fail with
// ErrnoNotFound rather than silently returning zero bytes.
func (fsys *FileSystem) ReadFile(handle FileHandle, buf []byte) (int, error) {
	slot, err := fsys.slotFor(handle)
	if err != nil {
		return 0, err
	}
	entry := &fsys.openFiles[slot]
	if !entry.access.CanRead() {
		return 0, NewDriverError(ErrnoPermissionDenied)
	}

	inode, err := fsys.ReadInode(entry.inode)
	if err != nil {
		return 0, err
	}
	if !inode.IsLive() {
		return 0, NewDriverError(ErrnoNotFound)
	}

	n, err := fsys.ReadInodeData(&inode, buf, entry.offset)
	if err != nil {
		return 0, err
	}
	entry.offset += int64(n)
	return n, nil
}

// WriteFile writes data at handle's current offset and advances it by the
// number of bytes actually written.
func (fsys *FileSystem) WriteFile(handle FileHandle, data []byte) (int, error) {
	slot, err := fsys.slotFor(handle)
	if err != nil {
		return 0, err
	}
	entry := &fsys.openFiles[slot]
	if !entry.access.CanWrite() {
		return 0, NewDriverError(ErrnoPermissionDenied)
	}

	inode, err := fsys.ReadInode(entry.inode)
	if err != nil {
		return 0, err
	}
	if !inode.IsLive() {
		return 0, NewDriverError(ErrnoNotFound)
	}

	n, err := fsys.WriteInodeData(&inode, data, entry.offset)
	entry.offset += int64(n)
	return n, err
}

// Seek repositions handle's read/write cursor, with io.Seeker's whence
// values (0/1/2 = start/current/end). Unlike io.Seeker, a resulting
// negative offset is clamped to 0 rather than reported as an error.
func (fsys *FileSystem) Seek(handle FileHandle, offset int64, whence int) (int64, error) {
	slot, err := fsys.slotFor(handle)
	if err != nil {
		return 0, err
	}
	entry := &fsys.openFiles[slot]

	switch whence {
	case 0:
		entry.offset = offset
	case 1:
		entry.offset += offset
	case 2:
		inode, err := fsys.ReadInode(entry.inode)
		if err != nil {
			return 0, err
		}
		entry.offset = int64(inode.Size) + offset
	default:
		return 0, NewDriverErrorWithMessage(ErrnoBadPath, "invalid whence")
	}
	if entry.offset < 0 {
		entry.offset = 0
	}
	return entry.offset, nil
}

// CreateFile creates a new regular file named by path's final component
// inside its parent directory, owned by the current session's identity.
func (fsys *FileSystem) CreateFile(path string, perm uint16) (Inode, error) {
	if err := fsys.requireLogin(); err != nil {
		return Inode{}, err
	}

	parent, base, err := fsys.GetParentInode(path)
	if err != nil {
		return Inode{}, err
	}
	if !parent.IsDir() {
		return Inode{}, NewDriverError(ErrnoNotDirectory)
	}
	if !fsys.CheckPermission(&parent, 0x2) {
		return Inode{}, NewDriverError(ErrnoPermissionDenied)
	}

	child, err := fsys.CreateInode(ModeRegular|(perm&ModePermMask), fsys.who.uid, fsys.who.gid)
	if err != nil {
		return Inode{}, err
	}
	if err := fsys.AddDirectoryEntry(&parent, base, child.Number, fileTypeForMode(child.Mode)); err != nil {
		return Inode{}, rollback(err, func() error { return fsys.DeleteInode(child.Number) })
	}
	return child, nil
}

// DeleteFile removes a regular file's directory entry and frees its inode
// immediately. Any handle still open on it becomes dangling, per the
// session design.
func (fsys *FileSystem) DeleteFile(path string) error {
	if err := fsys.requireLogin(); err != nil {
		return err
	}

	parent, base, err := fsys.GetParentInode(path)
	if err != nil {
		return err
	}
	if !fsys.CheckPermission(&parent, 0x2) {
		return NewDriverError(ErrnoPermissionDenied)
	}

	entry, err := fsys.Lookup(&parent, base)
	if err != nil {
		return err
	}
	child, err := fsys.ReadInode(entry.Inode)
	if err != nil {
		return err
	}
	if child.IsDir() {
		return NewDriverError(ErrnoIsDirectory)
	}

	if err := fsys.RemoveDirectoryEntry(&parent, base); err != nil {
		return err
	}
	if err := fsys.DecrementLinkCount(&child); err != nil {
		return err
	}
	if child.LinksCount == 0 {
		return fsys.DeleteInode(child.Number)
	}
	return nil
}

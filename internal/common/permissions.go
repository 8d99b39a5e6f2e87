package common

import "os"

// File and directory permissions used across the tool.
const (
	// DirPermissionSecure is for directories holding credentials or config
	DirPermissionSecure os.FileMode = 0700
	// DirPermissionNormal is for scaffolded notebook directories
	DirPermissionNormal os.FileMode = 0755
	// FilePermissionSecure is for config and credential files
	FilePermissionSecure os.FileMode = 0600
	// FilePermissionNormal is for notebook files
	FilePermissionNormal os.FileMode = 0644
)

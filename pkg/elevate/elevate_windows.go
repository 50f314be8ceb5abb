//go:build windows

package elevate

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// IsElevated reports whether the process runs with an elevated token and
// belongs to the local Administrators group.
func IsElevated() (bool, error) {
	if !windows.GetCurrentProcessToken().IsElevated() {
		return false, nil
	}

	var adminSid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&adminSid)
	if err != nil {
		return false, err
	}
	defer windows.FreeSid(adminSid)

	token := windows.Token(0)
	return token.IsMember(adminSid)
}

// Relaunch starts the current executable again through the UAC prompt with
// args plus Flag. The caller should exit once it returns nil.
func Relaunch(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	quoted := make([]string, 0, len(args)+1)
	for _, a := range append(StripFlag(args), Flag) {
		quoted = append(quoted, windows.EscapeArg(a))
	}

	verbPtr, _ := windows.UTF16PtrFromString("runas")
	exePtr, _ := windows.UTF16PtrFromString(exe)
	argsPtr, _ := windows.UTF16PtrFromString(strings.Join(quoted, " "))
	cwdPtr, _ := windows.UTF16PtrFromString(cwd)

	if err := windows.ShellExecute(0, verbPtr, exePtr, argsPtr, cwdPtr, windows.SW_NORMAL); err != nil {
		return fmt.Errorf("elevation request failed: %w", err)
	}
	return nil
}

// PatchArgs re-parses the raw Windows command line so that os.Args exactly
// matches what the user typed, including quoted labels with spaces.
//
// Must be called before flag parsing.
func PatchArgs() {
	cmdLinePtr := windows.GetCommandLine()
	if cmdLinePtr == nil {
		return
	}
	var argc int32
	argvPtr, err := windows.CommandLineToArgv(cmdLinePtr, &argc)
	if err != nil || argvPtr == nil || argc < 1 {
		return
	}
	defer windows.LocalFree(windows.Handle(uintptr(unsafe.Pointer(argvPtr))))

	argvSlice := unsafe.Slice((**uint16)(unsafe.Pointer(argvPtr)), argc)

	newArgs := make([]string, 0, argc)
	for _, p := range argvSlice {
		if p != nil {
			newArgs = append(newArgs, windows.UTF16PtrToString(p))
		}
	}
	os.Args = newArgs
}

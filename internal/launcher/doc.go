// Package launcher starts vendor batch scripts and executables detached from
// the caller.
//
// Launch fails with ErrLaunchNotFound before creating any process when the
// target is missing. The working directory is set on the launched command
// only; the caller's working directory is never changed. On Windows each job
// gets its own console (batch files run through cmd /c); elsewhere it runs in
// its own process group.
package launcher

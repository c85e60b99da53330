// Package cli holds the pieces shared by the testplan commands that talk to a
// running import server: common flags, output rendering and polling.
//
// Output follows kubectl conventions. Tables have upper-case headers and no
// borders so they can be piped to grep, awk or cut; --output json and
// --output yaml print the server response as-is.
//
//	TASK ID                                PROJECT   VERSION   STATUS      PROGRESS   AGE
//	0b6b7d0e-8f8a-4a7e-9d1e-2f8f2a1c7a10   Demo      1.2.0     completed   100%       3m
//
// WaitForImport shows a spinner on stderr while it polls, unless quiet.
package cli

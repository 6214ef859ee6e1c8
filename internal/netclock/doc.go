// Package netclock obtains the current time from public time servers.
//
// Source queries its servers concurrently and keeps the answer from the
// highest priority server that replied within the timeout. Running out of
// servers is reported through NetworkResult rather than as an error; the
// caller decides whether missing network time is fatal.
package netclock

// Command jobmedia queues job-site photos and uploads them to the job-media
// backend.
//
// Images are copied into a managed directory and queued in SQLite. The
// selected job code and file type persist between invocations. `jobmedia
// upload` reserves one index range for the whole queue and uploads it in
// small concurrent groups, removing each image once the backend has both the
// blob and its metadata row.
package main

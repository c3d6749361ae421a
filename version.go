package main

// Version represents the current version of the application
const Version = "1.0.0"

// AppName names the lock file, log files and input device
const AppName = "cec-input"

// Package logger provides the structured loggers used across keybridge:
// a console logger for interactive use and a rotating JSON file logger
// selected with logger.type: file.
package logger

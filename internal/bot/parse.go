package bot

import (
	"errors"
	"strconv"
	"strings"
)

var errBadArgs = errors.New("bad arguments")

func parseIDArg(args string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadArgs
	}
	return id, nil
}

// parseUpdateArgs splits "<id> <url>" for the /update command.
func parseUpdateArgs(args string) (int64, string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, "", errBadArgs
	}
	id, err := parseIDArg(fields[0])
	if err != nil {
		return 0, "", err
	}
	return id, fields[1], nil
}

// parseAddUserArgs parses "<id> [admin 0|1] [sub 0|1]" for /adduser.
// Subscription defaults to on, matching first-user registration.
func parseAddUserArgs(args string) (id int64, isAdmin, subscribed bool, err error) {
	fields := strings.Fields(args)
	if len(fields) < 1 || len(fields) > 3 {
		return 0, false, false, errBadArgs
	}
	id, err = parseIDArg(fields[0])
	if err != nil {
		return 0, false, false, err
	}
	subscribed = true
	if len(fields) >= 2 {
		isAdmin, err = parseFlag(fields[1])
		if err != nil {
			return 0, false, false, err
		}
	}
	if len(fields) == 3 {
		subscribed, err = parseFlag(fields[2])
		if err != nil {
			return 0, false, false, err
		}
	}
	return id, isAdmin, subscribed, nil
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, errBadArgs
}

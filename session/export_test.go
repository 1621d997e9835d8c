package session

var WithManagerClock = withManagerClock

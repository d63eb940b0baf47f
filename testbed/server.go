package testbed

import (
	"errors"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/redisdumb"
)

// Server is a redis-server process.
type Server struct {
	Port   uint16
	Args   []string
	Cmd    *exec.Cmd
	Paused bool
}

// PortStr returns port as string.
func (s *Server) PortStr() string {
	return strconv.Itoa(int(s.Port))
}

// Addr returns address of server.
func (s *Server) Addr() string {
	return "127.0.0.1:" + s.PortStr()
}

// Start starts server if it is not running.
func (s *Server) Start() error {
	if s.Cmd != nil {
		return nil
	}
	if Binary == "" {
		return errors.New("redis-server binary not found")
	}
	s.Paused = false
	port := s.PortStr()
	args := append([]string{
		"--bind", "127.0.0.1",
		"--port", port,
		"--logfile", port + ".log",
		"--save", "",
		"--appendonly", "no",
	}, s.Args...)
	s.Cmd = exec.Command(Binary, args...)
	s.Cmd.Dir = Dir
	if err := s.Cmd.Start(); err != nil {
		s.Cmd = nil
		return err
	}
	for i := 0; i < 100; i++ {
		if res := s.Do("PING"); res == "PONG" {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("redis-server doesn't answer PING")
}

// RunningNow reports whether server is started and not paused.
func (s *Server) RunningNow() bool {
	return s.Cmd != nil && !s.Paused
}

// Pause stops process with SIGSTOP.
func (s *Server) Pause() error {
	if s.Paused {
		return nil
	}
	if err := s.Cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return err
	}
	s.Paused = true
	return nil
}

// Resume continues paused process.
func (s *Server) Resume() error {
	if !s.Paused {
		return nil
	}
	if err := s.Cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return err
	}
	s.Paused = false
	return nil
}

// Stop kills process.
func (s *Server) Stop() error {
	if s.Paused {
		s.Resume()
	}
	if s.Cmd == nil {
		return nil
	}
	defer time.Sleep(10 * time.Millisecond)
	p := s.Cmd
	s.Cmd = nil
	defer p.Wait()
	return p.Process.Kill()
}

// Do executes command with short-lived connection.
func (s *Server) Do(cmd string, args ...interface{}) interface{} {
	conn := redisdumb.Conn{Addr: s.Addr(), Timeout: time.Second}
	defer conn.Close()
	return conn.Do(cmd, args...)
}

// DoSure executes command and panics if it returns error.
func (s *Server) DoSure(cmd string, args ...interface{}) interface{} {
	res := s.Do(cmd, args...)
	if err := redis.AsError(res); err != nil {
		panic(err)
	}
	return res
}

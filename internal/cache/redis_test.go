package cache

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRedis is a minimal in-process RESP server covering the commands the
// client issues. It records every command for assertions.
type fakeRedis struct {
	listener net.Listener

	mu       sync.Mutex
	values   map[string]string
	expiries map[string]time.Time
	commands [][]string
}

func newFakeRedis(t *testing.T) *fakeRedis {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &fakeRedis{
		listener: listener,
		values:   map[string]string{},
		expiries: map[string]time.Time{},
	}
	go server.serve()
	t.Cleanup(func() { _ = listener.Close() })

	return server
}

func (s *fakeRedis) addr() string {
	return s.listener.Addr().String()
}

func (s *fakeRedis) recorded() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.commands))
	copy(out, s.commands)
	return out
}

func (s *fakeRedis) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeRedis) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		args, err := readCommand(reader)
		if err != nil {
			return
		}
		if _, err := conn.Write([]byte(s.dispatch(args))); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	header = strings.TrimSuffix(strings.TrimSuffix(header, "\n"), "\r")
	if !strings.HasPrefix(header, "*") {
		return nil, fmt.Errorf("unexpected header %q", header)
	}
	count, err := strconv.Atoi(header[1:])
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if _, err := r.ReadString('\n'); err != nil { // $<len> line
			return nil, err
		}
		arg, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		args = append(args, strings.TrimSuffix(strings.TrimSuffix(arg, "\n"), "\r"))
	}
	return args, nil
}

func (s *fakeRedis) dispatch(args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, args)

	switch strings.ToUpper(args[0]) {
	case "AUTH", "SELECT":
		return "+OK\r\n"
	case "SET":
		s.values[args[1]] = args[2]
		delete(s.expiries, args[1])
		if len(args) >= 5 && strings.EqualFold(args[3], "PX") {
			millis, _ := strconv.Atoi(args[4])
			s.expiries[args[1]] = time.Now().Add(time.Duration(millis) * time.Millisecond)
		}
		return "+OK\r\n"
	case "GET":
		value, ok := s.lookup(args[1])
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(value), value)
	case "DEL":
		removed := 0
		for _, key := range args[1:] {
			if _, ok := s.values[key]; ok {
				removed++
			}
			delete(s.values, key)
			delete(s.expiries, key)
		}
		return fmt.Sprintf(":%d\r\n", removed)
	case "INCR":
		current, _ := strconv.ParseInt(s.values[args[1]], 10, 64)
		current++
		s.values[args[1]] = strconv.FormatInt(current, 10)
		return fmt.Sprintf(":%d\r\n", current)
	case "PEXPIRE":
		millis, _ := strconv.Atoi(args[2])
		s.expiries[args[1]] = time.Now().Add(time.Duration(millis) * time.Millisecond)
		return ":1\r\n"
	case "PTTL":
		expiry, ok := s.expiries[args[1]]
		if !ok {
			return ":-1\r\n"
		}
		return fmt.Sprintf(":%d\r\n", time.Until(expiry).Milliseconds())
	default:
		return fmt.Sprintf("-ERR unknown command %q\r\n", args[0])
	}
}

func (s *fakeRedis) lookup(key string) (string, bool) {
	if expiry, ok := s.expiries[key]; ok && time.Now().After(expiry) {
		delete(s.values, key)
		delete(s.expiries, key)
		return "", false
	}
	value, ok := s.values[key]
	return value, ok
}

func TestRedisClientSetGetDelete(t *testing.T) {
	server := newFakeRedis(t)

	client, err := NewRedisClient(RedisConfig{Address: server.addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "events", []byte(`[]`), time.Minute))

	value, ok, err := client.Get(ctx, "events")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(`[]`), value)

	require.NoError(t, client.Delete(ctx, "events"))

	_, ok, err = client.Get(ctx, "events")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisClientSetWithoutTTLOmitsPX(t *testing.T) {
	server := newFakeRedis(t)

	client, err := NewRedisClient(RedisConfig{Address: server.addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "events", []byte("[]"), 0))

	var setCmd []string
	for _, cmd := range server.recorded() {
		if strings.EqualFold(cmd[0], "SET") {
			setCmd = cmd
		}
	}
	require.Len(t, setCmd, 3, "SET without ttl must not carry PX")
	require.Equal(t, "cultach:events", setCmd[1])
}

func TestRedisClientKeyPrefix(t *testing.T) {
	server := newFakeRedis(t)

	client, err := NewRedisClient(RedisConfig{Address: server.addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "cultach:events", []byte("x"), time.Minute))

	commands := server.recorded()
	require.NotEmpty(t, commands)
	require.Equal(t, "cultach:events", commands[len(commands)-1][1])
}

func TestRedisClientIncrementWithTTL(t *testing.T) {
	server := newFakeRedis(t)

	client, err := NewRedisClient(RedisConfig{Address: server.addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()

	count, ttl, err := client.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = client.IncrementWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestRedisClientAuth(t *testing.T) {
	server := newFakeRedis(t)

	client, err := NewRedisClient(RedisConfig{Address: server.addr(), Password: "hunter2"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", []byte("v"), time.Minute))

	commands := server.recorded()
	require.Equal(t, []string{"AUTH", "hunter2"}, commands[0])
}

func TestNewRedisClientRequiresAddress(t *testing.T) {
	_, err := NewRedisClient(RedisConfig{})
	require.Error(t, err)
}

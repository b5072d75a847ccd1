package sysproxy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strconv"
	"strings"
)

// Runner executes a proxy tool (gsettings, networksetup, dbus-send) and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner runs commands as the desktop user owning the session, so a
// launcher started through sudo still edits that user's settings.
type execRunner struct {
	user string
	env  map[string]string
}

func newExecRunner() *execRunner {
	u := resolveTargetUser()
	env := buildUserEnv(u)
	ensureDBUSSession(env)
	return &execRunner{user: u, env: env}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if runtime.GOOS == "linux" && r.user != "" && os.Geteuid() == 0 {
		if current, err := user.Current(); err == nil && current.Username != r.user {
			// sudo -u <user> env KEY=VAL ... <command> <args>
			// 必须显式传递环境变量，因为 sudo 默认会清除环境
			sudoArgs := []string{"-u", r.user, "env"}
			for k, v := range r.env {
				sudoArgs = append(sudoArgs, fmt.Sprintf("%s=%s", k, v))
			}
			sudoArgs = append(sudoArgs, name)
			sudoArgs = append(sudoArgs, args...)
			return runWithEnv(ctx, nil, "sudo", sudoArgs...)
		}
	}
	return runWithEnv(ctx, r.env, name, args...)
}

func runWithEnv(ctx context.Context, extraEnv map[string]string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = mergeEnv(os.Environ(), extraEnv)
	output, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg == "" {
			msg = "unknown error"
		}
		return string(output), fmt.Errorf("%s %s failed: %v (%s)", name, strings.Join(args, " "), err, msg)
	}
	return string(output), nil
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	envMap := make(map[string]string, len(base)+len(extra))
	for _, kv := range base {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}
	for k, v := range extra {
		envMap[k] = v
	}
	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

// resolveTargetUser 解析应写入系统代理设置的桌面用户
func resolveTargetUser() string {
	if u := strings.TrimSpace(os.Getenv("SUDO_USER")); u != "" {
		return u
	}
	if uid := strings.TrimSpace(os.Getenv("PKEXEC_UID")); uid != "" {
		if userByUID, err := user.LookupId(uid); err == nil {
			return userByUID.Username
		}
	}
	if data, err := os.ReadFile("/proc/self/loginuid"); err == nil {
		uid := strings.TrimSpace(string(data))
		if uid != "" && uid != "4294967295" { // -1 (unsigned)
			if userByUID, err := user.LookupId(uid); err == nil {
				return userByUID.Username
			}
		}
	}
	if current, err := user.Current(); err == nil {
		return current.Username
	}
	return ""
}

// buildUserEnv 为目标用户构造必要的环境变量（DBUS、XDG、HOME）
func buildUserEnv(username string) map[string]string {
	env := make(map[string]string)
	if username == "" {
		return env
	}
	u, err := user.Lookup(username)
	if err != nil {
		return env
	}
	env["HOME"] = u.HomeDir
	env["USER"] = username
	env["LOGNAME"] = username

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return env
	}
	runtimeDir := fmt.Sprintf("/run/user/%d", uid)
	busPath := runtimeDir + "/bus"
	if _, err := os.Stat(busPath); err == nil {
		env["XDG_RUNTIME_DIR"] = runtimeDir
		env["DBUS_SESSION_BUS_ADDRESS"] = "unix:path=" + busPath
	}
	return env
}

// ensureDBUSSession falls back to the current user's bus when the target user's could not be found.
func ensureDBUSSession(env map[string]string) {
	if env == nil || env["DBUS_SESSION_BUS_ADDRESS"] != "" {
		return
	}
	if dbus := os.Getenv("DBUS_SESSION_BUS_ADDRESS"); dbus != "" {
		env["DBUS_SESSION_BUS_ADDRESS"] = dbus
		return
	}
	path := fmt.Sprintf("/run/user/%d/bus", os.Getuid())
	if _, err := os.Stat(path); err == nil {
		env["DBUS_SESSION_BUS_ADDRESS"] = "unix:path=" + path
		if env["XDG_RUNTIME_DIR"] == "" {
			env["XDG_RUNTIME_DIR"] = fmt.Sprintf("/run/user/%d", os.Getuid())
		}
	}
}

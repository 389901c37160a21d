package entrypoint

import (
	"strconv"
	"strings"

	"github.com/runbox-dev/runbox/internal/runconfig"
)

// nodeBootstrap evaluates the entry file inside a bare vm context. The
// context exposes only a console bridge and a synthetic process object:
// argv, a frozen empty env, and an exit() that throws, since a real
// process.exit() would escape the harness. The evaluator timeout enforces
// the wall-clock limit.
const nodeBootstrap = `'use strict';
const fs = require('fs');
const vm = require('vm');

const TIME_LIMIT_MS = @TIME_LIMIT_MS@;

const entry = process.argv[1];
const guestArgv = [entry].concat(process.argv.slice(2));

function writeLine(stream, args) {
  stream.write(args.map(String).join(' ') + '\n');
}

const context = vm.createContext({
  console: {
    log: (...args) => writeLine(process.stdout, args),
    info: (...args) => writeLine(process.stdout, args),
    warn: (...args) => writeLine(process.stderr, args),
    error: (...args) => writeLine(process.stderr, args),
  },
  process: {
    argv: guestArgv,
    env: Object.freeze({}),
    exit: (code) => {
      throw new Error('process.exit(' + (code === undefined ? 0 : code) + ')');
    },
  },
});

try {
  const source = fs.readFileSync(entry, 'utf8');
  vm.runInContext(source, context, { filename: entry, timeout: TIME_LIMIT_MS });
} catch (err) {
  const msg = err && err.message ? err.message : String(err);
  process.stderr.write('ERROR: ' + msg + '\n');
}
`

func buildNode(cfg runconfig.RunConfig) Entrypoint {
	code := strings.NewReplacer(
		"@TIME_LIMIT_MS@", strconv.Itoa(cfg.TimeLimitMs),
	).Replace(nodeBootstrap)

	argv := []string{"node", "-e", code, cfg.EntryFile}
	return Entrypoint{Argv: append(argv, cfg.Args...)}
}

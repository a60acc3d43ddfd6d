package kube

import (
	"errors"
	"os"
	"path/filepath"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const inClusterTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// BuildConfig resolves a *rest.Config the way the process is documented to:
// in-cluster service account first (if the token file is present), then
// KUBECONFIG, then $HOME/.kube/config.
func BuildConfig(kubeQPS float32, kubeBurst int) (*rest.Config, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	cfg.QPS = kubeQPS
	cfg.Burst = kubeBurst
	return cfg, nil
}

func resolveConfig() (*rest.Config, error) {
	if _, err := os.Stat(inClusterTokenPath); err == nil {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}

	if kubeconfig := os.Getenv("KUBECONFIG"); kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New("cannot resolve $HOME to locate ~/.kube/config: " + err.Error())
	}
	return clientcmd.BuildConfigFromFlags("", filepath.Join(home, ".kube", "config"))
}

package kube

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/kubesee/kubesee/pkg/metrics"
)

// ObjectMetadata is the subset of a Kubernetes object's metadata the watcher
// overlays onto an event's involved-object reference.
type ObjectMetadata struct {
	Labels          map[string]string
	Annotations     map[string]string
	OwnerReferences []metav1.OwnerReference
	Deleted         bool
}

// ObjectMetadataProvider resolves an involved-object reference to its
// current metadata, cached by (apiVersion, kind, namespace, name).
type ObjectMetadataProvider interface {
	GetObjectMetadata(ref *corev1.ObjectReference, clientset *kubernetes.Clientset, dynamicClient *dynamic.DynamicClient, metricsStore *metrics.Store) (*ObjectMetadata, error)
}

type lruObjectMetadataProvider struct {
	cache *lru.Cache
}

// NewObjectMetadataProvider creates a cache of at most size entries. A
// size of 0 or less is treated as 1, so the most recent lookup is cached.
func NewObjectMetadataProvider(size int) ObjectMetadataProvider {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New(size)
	if err != nil {
		// lru.New only fails for a non-positive size, which we've guarded above.
		panic(err)
	}
	return &lruObjectMetadataProvider{cache: cache}
}

func cacheKey(ref *corev1.ObjectReference) string {
	return fmt.Sprintf("%s/%s/%s/%s", ref.APIVersion, ref.Kind, ref.Namespace, ref.Name)
}

func (p *lruObjectMetadataProvider) GetObjectMetadata(ref *corev1.ObjectReference, clientset *kubernetes.Clientset, dynamicClient *dynamic.DynamicClient, metricsStore *metrics.Store) (*ObjectMetadata, error) {
	key := cacheKey(ref)
	if cached, ok := p.cache.Get(key); ok {
		metricsStore.CacheHits.Inc()
		return cached.(*ObjectMetadata), nil
	}
	metricsStore.CacheMisses.Inc()

	gvk := schema.FromAPIVersionAndKind(ref.APIVersion, ref.Kind)
	gvr, _ := meta.UnsafeGuessKindToResource(gvk)

	var obj *unstructured.Unstructured
	var err error
	if ref.Namespace != "" {
		obj, err = dynamicClient.Resource(gvr).Namespace(ref.Namespace).Get(context.Background(), ref.Name, metav1.GetOptions{})
	} else {
		obj, err = dynamicClient.Resource(gvr).Get(context.Background(), ref.Name, metav1.GetOptions{})
	}
	if err != nil {
		return nil, err
	}

	metadata := &ObjectMetadata{
		Labels:          obj.GetLabels(),
		Annotations:     obj.GetAnnotations(),
		OwnerReferences: obj.GetOwnerReferences(),
	}
	p.cache.Add(key, metadata)
	return metadata, nil
}
